// Package i18n localizes the web UI's strings. Two locales, English and
// Russian, ship compiled into the binary; English answers when a message
// has no translation in the requested language.
package i18n

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/en.json
var enMessages []byte

//go:embed locales/ru.json
var ruMessages []byte

type ctxKey struct{}

var (
	bundle      *i18n.Bundle
	defaultLang string
)

// Init builds the message bundle and records lang as the serve-time
// default. Both locales always load; lang only decides which one answers
// when a request states no preference.
func Init(lang string) error {
	if _, err := language.Parse(lang); err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)
	if _, err := b.ParseMessageFileBytes(enMessages, "en.json"); err != nil {
		return fmt.Errorf("load en locale: %w", err)
	}
	if _, err := b.ParseMessageFileBytes(ruMessages, "ru.json"); err != nil {
		return fmt.Errorf("load ru locale: %w", err)
	}
	bundle = b
	defaultLang = lang
	return nil
}

// NewLocalizer resolves the given language tags in preference order.
func NewLocalizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(bundle, langs...)
}

// WithLocalizer attaches a request localizer to the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func localizerFromCtx(ctx context.Context) *i18n.Localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer); ok {
		return loc
	}
	return i18n.NewLocalizer(bundle, defaultLang)
}

// T looks up a plain message. A missing ID falls back to the ID itself so
// the page still renders.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Tp looks up a pluralized message; the count is available to the message
// template as {{.Count}}.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

func localize(ctx context.Context, lc *i18n.LocalizeConfig) string {
	s, err := localizerFromCtx(ctx).Localize(lc)
	if err != nil {
		slog.Warn("missing translation", "id", lc.MessageID, "error", err)
		return lc.MessageID
	}
	return s
}
