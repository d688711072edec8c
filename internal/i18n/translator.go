// Package i18n localizes the site's interface strings.
package i18n

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// Translator is a thin wrapper around go-i18n's Bundle/Localizer.
type Translator struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
	log     *slog.Logger
}

// New loads every embedded active.*.toml file. English is the fallback.
func New(log *slog.Logger) (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := localeFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("i18n: list locales: %w", err)
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(localeFS, f.Name()); err != nil {
			return nil, fmt.Errorf("i18n: load %s: %w", f.Name(), err)
		}
	}

	return &Translator{
		bundle:  bundle,
		matcher: language.NewMatcher(bundle.LanguageTags()),
		log:     log,
	}, nil
}

// Languages lists the loaded locales, fallback first.
func (t *Translator) Languages() []string {
	tags := t.bundle.LanguageTags()
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = tag.String()
	}
	return out
}

// Match picks the best supported locale for an Accept-Language header.
func (t *Translator) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English.String()
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return language.English.String()
	}
	return t.bundle.LanguageTags()[idx].String()
}

// T renders key for locale. Unknown keys render as the key itself.
func (t *Translator) T(locale, key string, data map[string]any) string {
	return t.localize(locale, &i18n.LocalizeConfig{MessageID: key, TemplateData: data})
}

// Plural renders a message with plural forms selected by count.
func (t *Translator) Plural(locale, key string, count any, data map[string]any) string {
	return t.localize(locale, &i18n.LocalizeConfig{MessageID: key, PluralCount: count, TemplateData: data})
}

func (t *Translator) localize(locale string, cfg *i18n.LocalizeConfig) string {
	if cfg.MessageID == "" {
		return ""
	}
	localizer := i18n.NewLocalizer(t.bundle, locale, language.English.String())
	msg, err := localizer.Localize(cfg)
	if err != nil {
		t.log.Warn("i18n: localize failed", "key", cfg.MessageID, "locale", locale, "error", err)
		return cfg.MessageID
	}
	return msg
}
