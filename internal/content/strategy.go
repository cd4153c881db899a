// Package content produces the text published for a measurement.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"KinneretSentinel/internal/model"
)

// SourceTemplate labels text produced by the deterministic fallback.
const SourceTemplate = "template"

// Strategy is the primary, fallible content source.
type Strategy interface {
	Generate(ctx context.Context, rec model.Record, snap *model.TrendSnapshot, maxLength int) (string, error)
	Name() string
}

// Fallback formats text without external calls. It must never fail.
type Fallback interface {
	Format(rec model.Record, upperRedLine float64) string
}

// Content is the text chosen for publication and where it came from.
type Content struct {
	Text       string
	Source     string
	PrimaryErr error // set when the primary strategy was tried and rejected
}

// Composer selects between the primary strategy and the fallback template.
// Exactly one of them supplies the text for a run.
type Composer struct {
	Primary   Strategy // nil disables generation
	Fallback  Fallback
	MaxLength int
	Logger    *slog.Logger
}

// NewComposer creates a Composer. primary may be nil.
func NewComposer(primary Strategy, fallback Fallback, maxLength int, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{Primary: primary, Fallback: fallback, MaxLength: maxLength, Logger: logger}
}

// Compose returns publishable text. Primary failures are logged and replaced by the template.
func (c *Composer) Compose(ctx context.Context, rec model.Record, snap *model.TrendSnapshot, upperRedLine float64) Content {
	if c.Primary != nil {
		text, err := c.tryPrimary(ctx, rec, snap)
		if err == nil {
			return Content{Text: text, Source: c.Primary.Name()}
		}
		c.Logger.Warn("content generation failed, using template",
			"strategy", c.Primary.Name(), "date", rec.Date, "error", err)
		return Content{Text: c.Fallback.Format(rec, upperRedLine), Source: SourceTemplate, PrimaryErr: err}
	}
	return Content{Text: c.Fallback.Format(rec, upperRedLine), Source: SourceTemplate}
}

func (c *Composer) tryPrimary(ctx context.Context, rec model.Record, snap *model.TrendSnapshot) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", c.Primary.Name(), r)
		}
	}()
	text, err = c.Primary.Generate(ctx, rec, snap, c.MaxLength)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty output")
	}
	if c.MaxLength > 0 && utf8.RuneCountInString(text) > c.MaxLength {
		return "", fmt.Errorf("output is %d characters, limit %d", utf8.RuneCountInString(text), c.MaxLength)
	}
	return text, nil
}
