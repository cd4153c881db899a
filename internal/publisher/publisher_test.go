package publisher

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestXPublisher_Publish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "OAuth "), "expected OAuth header, got %q", auth)
		assert.Contains(t, auth, `oauth_consumer_key="app-key"`)
		assert.Contains(t, auth, `oauth_token="access-token"`)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "מפלס הכנרת", body["text"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1890","text":"מפלס הכנרת"}}`))
	}))
	defer srv.Close()

	p := NewXPublisher(XCredentials{
		AppKey: "app-key", AppSecret: "app-secret",
		AccessToken: "access-token", AccessSecret: "access-secret",
	}, 5*time.Second, "", quietLogger)
	p.Endpoint = srv.URL

	id, err := p.Publish(context.Background(), "מפלס הכנרת")
	require.NoError(t, err)
	assert.Equal(t, "1890", id)
}

func TestXPublisher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"forbidden", http.StatusForbidden, `{"detail":"duplicate content"}`},
		{"rate limited", http.StatusTooManyRequests, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewXPublisher(XCredentials{AppKey: "k", AppSecret: "s", AccessToken: "t", AccessSecret: "x"}, time.Second, "", quietLogger)
			p.Endpoint = srv.URL
			_, err := p.Publish(context.Background(), "text")
			assert.Error(t, err)
		})
	}
}

func TestXPublisher_AcceptedWithoutIDIsSuccess(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"data without id", `{"data":{"text":"hi"}}`},
		{"not json", `<html>created</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var posts int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&posts, 1)
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewXPublisher(XCredentials{AppKey: "k", AppSecret: "s", AccessToken: "t", AccessSecret: "x"}, time.Second, "", quietLogger)
			p.Endpoint = srv.URL
			id, err := p.Publish(context.Background(), "hi")
			require.NoError(t, err)
			assert.Empty(t, id)
			assert.Equal(t, int32(1), atomic.LoadInt32(&posts))
		})
	}
}

func TestTelegramPublisher_AcceptedWithUndecodableBodyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	p := NewTelegramPublisher("token", "42", "", quietLogger)
	p.APIBase = srv.URL

	id, err := p.Publish(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestTelegramPublisher_Publish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["chat_id"])
		assert.Empty(t, body["parse_mode"])
		w.Write([]byte(`{"ok":true,"result":{"message_id":77}}`))
	}))
	defer srv.Close()

	p := NewTelegramPublisher("token", "42", "", quietLogger)
	p.APIBase = srv.URL

	id, err := p.Publish(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "77", id)
}

func TestTelegramPublisher_SendWithRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	p := NewTelegramPublisher("token", "42", "", quietLogger)
	p.APIBase = srv.URL

	require.NoError(t, p.SendWithRetry(context.Background(), "<b>hi</b>", 1))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTelegramPublisher_SendWithRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewTelegramPublisher("token", "42", "", quietLogger)
	p.APIBase = srv.URL
	assert.Error(t, p.SendWithRetry(context.Background(), "hi", 0))
}

func TestTelegramPublisher_StartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var polls int32
	replies := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottoken/getUpdates":
			if atomic.AddInt32(&polls, 1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":10,"message":{"text":"/level","chat":{"id":99}}},
					{"update_id":11,"message":{"text":" /level ","chat":{"id":42}}}
				]}`))
				return
			}
			<-ctx.Done()
		case "/bottoken/sendMessage":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			replies <- body["text"]
			w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
		}
	}))
	defer srv.Close()

	p := NewTelegramPublisher("token", "42", "", quietLogger)
	p.APIBase = srv.URL

	var handled []string
	done := make(chan struct{})
	go func() {
		p.StartPolling(ctx, func(_ context.Context, cmd string) string {
			handled = append(handled, cmd)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case got := <-replies:
		assert.Equal(t, "reply to /level", got)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	<-done
	assert.Equal(t, []string{"/level"}, handled)
}
