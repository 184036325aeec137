// Package i18n picks the locale of a request and translates API messages.
package i18n

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// CookieName is the cookie the web client stores the chosen locale in.
const CookieName = "NEXT_LOCALE"

// QueryParam overrides every other locale source.
const QueryParam = "locale"

// Negotiator matches requested locales against the configured ones and
// translates messages into the result.
type Negotiator struct {
	locales  []string
	tags     []language.Tag
	matcher  language.Matcher
	fallback string
	catalog  *catalog.Builder
}

// New builds a negotiator for locales. def must be one of them.
func New(locales []string, def string) (*Negotiator, error) {
	if len(locales) == 0 {
		return nil, fmt.Errorf("at least one locale is required")
	}

	n := &Negotiator{fallback: def}
	// The matcher answers its first tag when nothing matches, so the default goes first.
	ordered := append([]string{def}, locales...)
	seen := map[string]bool{}
	for _, l := range ordered {
		if seen[l] {
			continue
		}
		seen[l] = true
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("invalid locale '%s': %w", l, err)
		}
		n.locales = append(n.locales, l)
		n.tags = append(n.tags, tag)
	}
	if !contains(locales, def) {
		return nil, fmt.Errorf("default locale '%s' is not in locales %v", def, locales)
	}
	n.matcher = language.NewMatcher(n.tags)

	n.catalog = catalog.NewBuilder(catalog.Fallback(n.tags[0]))
	for _, l := range n.locales {
		tag := n.tags[n.index(l)]
		for key, msg := range translations[baseOf(l)] {
			if err := n.catalog.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("failed to load %s translation for %q: %w", l, key, err)
			}
		}
	}
	return n, nil
}

// Default returns the fallback locale.
func (n *Negotiator) Default() string {
	return n.fallback
}

// Locales returns the supported locales, default first.
func (n *Negotiator) Locales() []string {
	return append([]string(nil), n.locales...)
}

// Match returns the supported locale closest to requested, and whether the
// match is good enough to use.
func (n *Negotiator) Match(requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return n.fallback, false
	}
	tag, err := language.Parse(requested)
	if err != nil {
		return n.fallback, false
	}
	_, idx, conf := n.matcher.Match(tag)
	if conf < language.High {
		return n.fallback, false
	}
	return n.locales[idx], true
}

// Resolve picks the locale of r. Precedence: the locale query parameter, the
// locale cookie, the user's stored preference, Accept-Language, the default.
func (n *Negotiator) Resolve(r *http.Request, userLocale string) string {
	if l, ok := n.Match(r.URL.Query().Get(QueryParam)); ok {
		return l
	}
	if c, err := r.Cookie(CookieName); err == nil {
		if l, ok := n.Match(c.Value); ok {
			return l
		}
	}
	if l, ok := n.Match(userLocale); ok {
		return l
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			_, idx, conf := n.matcher.Match(tags...)
			if conf >= language.High {
				return n.locales[idx]
			}
		}
	}
	return n.fallback
}

// Translate returns msg in locale. Messages without a translation come back unchanged.
func (n *Negotiator) Translate(locale, msg string) string {
	idx := n.index(locale)
	if idx < 0 || !hasTranslation(baseOf(locale), msg) {
		return msg
	}
	return message.NewPrinter(n.tags[idx], message.Catalog(n.catalog)).Sprintf(msg)
}

func (n *Negotiator) index(locale string) int {
	for i, l := range n.locales {
		if l == locale {
			return i
		}
	}
	return -1
}

func hasTranslation(base, msg string) bool {
	_, ok := translations[base][msg]
	return ok
}

func baseOf(locale string) string {
	base, _, _ := strings.Cut(strings.ToLower(locale), "-")
	return base
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type localeKey struct{}

// WithLocale stores the request locale in ctx.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// FromContext returns the locale stored by WithLocale, or "" when none is set.
func FromContext(ctx context.Context) string {
	l, _ := ctx.Value(localeKey{}).(string)
	return l
}
