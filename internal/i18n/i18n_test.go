package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNegotiator(t *testing.T) *Negotiator {
	t.Helper()
	n, err := New([]string{"en", "fr"}, "fr")
	require.NoError(t, err)
	return n
}

func TestNew(t *testing.T) {
	n := newNegotiator(t)
	assert.Equal(t, "fr", n.Default())
	assert.Equal(t, []string{"fr", "en"}, n.Locales())

	_, err := New([]string{"en"}, "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default locale 'fr' is not in locales")

	_, err = New(nil, "fr")
	assert.Error(t, err)

	_, err = New([]string{"en", "not a locale!"}, "en")
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	n := newNegotiator(t)

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"en", "en", true},
		{"en-US", "en", true},
		{"fr-CA", "fr", true},
		{"de", "fr", false},
		{"", "fr", false},
		{"???", "fr", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := n.Match(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestResolve(t *testing.T) {
	n := newNegotiator(t)

	request := func(target string, cookie string, accept string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		if cookie != "" {
			r.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
		}
		if accept != "" {
			r.Header.Set("Accept-Language", accept)
		}
		return r
	}

	tests := []struct {
		name       string
		req        *http.Request
		userLocale string
		want       string
	}{
		{"query wins over everything", request("/?locale=en", "fr", "fr"), "fr", "en"},
		{"cookie wins over user and header", request("/", "en", "fr"), "fr", "en"},
		{"user locale wins over header", request("/", "", "fr"), "en", "en"},
		{"accept-language", request("/", "", "de-DE,en;q=0.8"), "", "en"},
		{"unsupported sources fall through", request("/?locale=de", "it", "es"), "pt", "fr"},
		{"nothing set uses default", request("/", "", ""), "", "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Resolve(tt.req, tt.userLocale))
		})
	}
}

func TestTranslate(t *testing.T) {
	n := newNegotiator(t)

	assert.Equal(t, "projet introuvable", n.Translate("fr", "project not found"))
	assert.Equal(t, "project not found", n.Translate("en", "project not found"))

	t.Run("unknown messages fall back to the key", func(t *testing.T) {
		assert.Equal(t, "something odd happened", n.Translate("fr", "something odd happened"))
	})

	t.Run("percent signs in untranslated messages survive", func(t *testing.T) {
		assert.Equal(t, "no tasks found matching '100%'", n.Translate("fr", "no tasks found matching '100%'"))
	})

	t.Run("unknown locale", func(t *testing.T) {
		assert.Equal(t, "project not found", n.Translate("de", "project not found"))
	})
}

func TestContext(t *testing.T) {
	assert.Equal(t, "", FromContext(context.Background()))
	assert.Equal(t, "en", FromContext(WithLocale(context.Background(), "en")))
}
