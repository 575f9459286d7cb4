// Package i18n loads the embedded message catalogues and renders the
// user-facing strings of calendar events, reminders and the dashboard.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/remindme/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Catalog holds every embedded language.
type Catalog struct {
	bundle  *goi18n.Bundle
	tags    []language.Tag
	matcher language.Matcher
}

// Load reads the embedded locale files. Files that do not follow the
// active.<lang>.json naming are skipped.
func Load() (*Catalog, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(config.LocaleDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalesAccess, err)
	}

	// English first so the matcher falls back to it.
	tags := []language.Tag{language.English}
	for _, entry := range entries {
		name := entry.Name()
		code, ok := strings.CutPrefix(name, config.LocalePrefix)
		if ok {
			code, ok = strings.CutSuffix(code, config.LocaleExt)
		}
		if !ok {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name)
			continue
		}

		tag, err := language.Parse(code)
		if err != nil {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, path.Join(config.LocaleDir, name)); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", config.ErrLocaleLoad, name, err)
		}
		if tag != language.English {
			tags = append(tags, tag)
		}
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, code)
	}

	return &Catalog{bundle: bundle, tags: tags, matcher: language.NewMatcher(tags)}, nil
}

// Languages returns the base codes of the loaded catalogues.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.tags))
	for _, t := range c.tags {
		base, _ := t.Base()
		out = append(out, base.String())
	}
	return out
}

// Translator picks the best catalogue for the given preferences, each either
// a language code or an Accept-Language header value. Unknown or empty
// preferences resolve to English.
func (c *Catalog) Translator(prefs ...string) *Translator {
	tag, _ := language.MatchStrings(c.matcher, prefs...)
	base, _ := tag.Base()
	return &Translator{
		lang:      base.String(),
		localizer: goi18n.NewLocalizer(c.bundle, base.String()),
	}
}
