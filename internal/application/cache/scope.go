package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"flipnote.app/cli/internal/core/ports"
)

// Scope decides which namespace a key lives in. Public listings are the
// same for every caller of a backend and go under Shared; everything else
// goes under Private, which names the current session.
type Scope struct {
	Shared  string
	Private func() string
}

// SessionScope namespaces entries by backend and by logged-in user, so a
// store shared between invocations never serves one user's reads to
// another, or development data to production.
func SessionScope(baseURL string, sessions ports.SessionStore) Scope {
	shared := "fq/" + digest(strings.TrimRight(baseURL, "/")) + "/"
	return Scope{
		Shared: shared,
		Private: func() string {
			session := sessions.Load()
			if !session.Authenticated() {
				return shared + "anon/"
			}
			return shared + "user/" + digest(session.User.Username+"\x00"+session.User.Email) + "/"
		},
	}
}

func (s Scope) private() string {
	if s.Private == nil {
		return s.Shared
	}
	return s.Private()
}

func (s Scope) key(key string) string {
	if strings.HasPrefix(key, PublicPrefix) {
		return s.Shared + key
	}
	return s.private() + key
}

// prefixes returns the store prefixes an invalidation of prefix touches
func (s Scope) prefixes(prefix string) []string {
	out := []string{s.private() + prefix}
	if strings.HasPrefix(PublicPrefix, prefix) || strings.HasPrefix(prefix, PublicPrefix) {
		if shared := s.Shared + prefix; shared != out[0] {
			out = append(out, shared)
		}
	}
	return out
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
