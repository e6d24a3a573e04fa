package httpdomain

import (
	"fmt"
	"net/url"
	"strings"
)

// BackendEndpoint describes the single backend target used by the CLI.
type BackendEndpoint struct {
	BaseURL   string
	UserAgent string
}

// URL resolves path against the base URL and appends query. Trailing
// slashes on path are kept; the backend routes on them.
func (e BackendEndpoint) URL(path string, query url.Values) (string, error) {
	u, err := url.Parse(e.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", e.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base url %q: scheme and host are required", e.BaseURL)
	}

	switch {
	case path == "":
	case u.Path == "":
		u.Path = "/" + strings.TrimPrefix(path, "/")
	default:
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	if len(query) > 0 {
		vals := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				vals.Add(k, v)
			}
		}
		u.RawQuery = vals.Encode()
	}
	return u.String(), nil
}
