package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KinneretSentinel/internal/model"
)

func newTestGemini(url string) *GeminiStrategy {
	g := NewGeminiStrategy("test-key", "gemini-2.0-flash", 0.7, 2*time.Second, "")
	g.BaseURL = url
	return g
}

func TestGemini_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.7, req.GenerationConfig.Temperature)
		assert.Equal(t, 1024, req.GenerationConfig.MaxOutputTokens)
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "209.50- מטר")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"\"ציוץ: המפלס   עלה\""}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	got, err := newTestGemini(srv.URL).Generate(context.Background(), testRecord, testSnapshot, 280)
	require.NoError(t, err)
	assert.Equal(t, "המפלס עלה", got)
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"internal"}}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]},"finishReason":"MAX_TOKENS"}]}`},
		{"malformed", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestGemini(srv.URL).Generate(context.Background(), testRecord, testSnapshot, 280)
			assert.Error(t, err)
		})
	}
}

func TestGemini_MissingKey(t *testing.T) {
	g := NewGeminiStrategy("", "gemini-2.0-flash", 0.7, time.Second, "")
	_, err := g.Generate(context.Background(), testRecord, testSnapshot, 280)
	assert.Error(t, err)
}

func TestBuildPrompt_IncludesTrendFacts(t *testing.T) {
	change := 8
	days := 382
	snap := &model.TrendSnapshot{
		CurrentDate:             "2026-02-06",
		CurrentLevel:            -213.16,
		GapToUpperRedLine:       436,
		GapToLowerRedLine:       16,
		GapToBlackLine:          -171,
		Change7Days:             &change,
		AverageDailyChange7Days: 8.0 / 7.0,
		IsRising:                true,
		DaysToUpperRedLine:      &days,
		SeasonalContext:         model.SeasonWinterFilling,
		IsNearCriticalThreshold: true,
		ComparisonToPreviousYears: []model.YearComparison{
			{Year: 2025, Level: -213, Difference: -16},
		},
		HistoricalHigh: &model.HistoricalPoint{Level: -208.9, Date: "2020-04-01", YearsAgo: 5},
		HistoricalLow:  &model.HistoricalPoint{Level: -214.87, Date: "2001-11-20", YearsAgo: 24},
		RankPercentile: 45,
	}
	p := BuildPrompt(model.Record{Date: "2026-02-06", Level: -213.16}, snap, 280)

	assert.Contains(t, p, "213.16- מטר")
	assert.Contains(t, p, "עולה")
	assert.Contains(t, p, "+8 ס״מ")
	assert.Contains(t, p, "לא זמין")
	assert.Contains(t, p, "382")
	assert.Contains(t, p, "עונת גשמים ומילוי")
	assert.Contains(t, p, "2025: 213.00- מטר (-16 ס״מ")
	assert.Contains(t, p, "45% (ממוצע)")
	assert.Contains(t, p, "280 תווים")
}
