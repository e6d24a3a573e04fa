package httpdomain

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendEndpoint_URL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		path     string
		query    url.Values
		expected string
	}{
		{"root base", "http://localhost:8000", "/quizzes/", nil, "http://localhost:8000/quizzes/"},
		{"base with trailing slash", "http://localhost:8000/", "/auth/login/", nil, "http://localhost:8000/auth/login/"},
		{"base with prefix", "https://api.example.com/v1/", "quizzes/3/", nil, "https://api.example.com/v1/quizzes/3/"},
		{"query", "http://localhost:8000", "/quizzes/search/", url.Values{"q": {"go basics"}}, "http://localhost:8000/quizzes/search/?q=go+basics"},
		{"query merges with base", "http://localhost:8000?lang=en", "/quizzes/", url.Values{"page": {"2"}}, "http://localhost:8000/quizzes/?lang=en&page=2"},
		{"empty path", "http://localhost:8000/api", "", nil, "http://localhost:8000/api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BackendEndpoint{BaseURL: tt.base}.URL(tt.path, tt.query)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBackendEndpoint_URLErrors(t *testing.T) {
	for _, base := range []string{"", "localhost:8000", "://broken", "/relative"} {
		t.Run(base, func(t *testing.T) {
			_, err := BackendEndpoint{BaseURL: base}.URL("/quizzes/", nil)
			assert.ErrorContains(t, err, "invalid base url")
		})
	}
}
