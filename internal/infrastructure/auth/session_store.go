package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"flipnote.app/cli/internal/core/domain"
	"flipnote.app/cli/internal/core/ports"
)

const sessionFileName = "session"

// SecureFileSessionStore keeps the session record in an encrypted file.
type SecureFileSessionStore struct {
	path       string
	encryptKey []byte
	logger     hclog.Logger
	mu         sync.RWMutex
}

// NewSecureFileSessionStore creates a store rooted at dir. A leading "~/"
// is expanded to the user's home directory.
func NewSecureFileSessionStore(dir string, logger hclog.Logger) (*SecureFileSessionStore, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	key, err := deriveEncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &SecureFileSessionStore{
		path:       filepath.Join(dir, sessionFileName),
		encryptKey: key,
		logger:     logger.Named("session"),
	}, nil
}

// Path returns the location of the session file
func (s *SecureFileSessionStore) Path() string { return s.path }

// Load reads the session. Missing or corrupt data reads as logged out.
func (s *SecureFileSessionStore) Load() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// Save persists the session; a session without credentials removes the record.
func (s *SecureFileSessionStore) Save(session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(session)
}

// UpdateAccessToken swaps the access token and keeps the refresh token and
// user. It does nothing when no session is stored, so a late refresh cannot
// bring back a session after logout.
func (s *SecureFileSessionStore) UpdateAccessToken(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load()
	if current.Credentials == nil {
		s.logger.Debug("ignoring access token update without a session")
		return nil
	}
	creds := current.Credentials.WithAccess(access)
	current.Credentials = &creds
	return s.save(current)
}

// Clear removes the session record
func (s *SecureFileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *SecureFileSessionStore) load() domain.Session {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read session file, treating as logged out", "error", err)
		}
		return domain.Session{}
	}

	decrypted, err := s.decrypt(data)
	if err != nil {
		s.logger.Warn("failed to decrypt session file, treating as logged out", "error", err)
		return domain.Session{}
	}

	var record domain.SessionRecord
	if err := json.Unmarshal(decrypted, &record); err != nil {
		s.logger.Warn("malformed session record, treating as logged out", "error", err)
		return domain.Session{}
	}
	return domain.SessionFromRecord(record)
}

func (s *SecureFileSessionStore) save(session domain.Session) error {
	if session.Credentials == nil {
		return s.remove()
	}
	if err := session.Credentials.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(session.ToRecord())
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	encrypted, err := s.encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial record.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, encrypted, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *SecureFileSessionStore) remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func (s *SecureFileSessionStore) encrypt(data []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.encryptKey)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(data)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	sealed := aead.Seal(nonce, nonce, data, nil)
	return []byte(base64.StdEncoding.EncodeToString(sealed)), nil
}

func (s *SecureFileSessionStore) decrypt(data []byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(s.encryptKey)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}

// deriveEncryptionKey derives a machine and user bound key. It keeps casual
// readers of the file out; it is not a substitute for an OS keychain.
func deriveEncryptionKey() ([]byte, error) {
	hostname, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}

	secret := []byte(fmt.Sprintf("flipnote-cli:%s:%s", hostname, user))
	salt := sha256.Sum256([]byte("flipnote-cli session v1"))
	reader := hkdf.New(sha256.New, secret, salt[:], []byte("session-file"))

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// MemorySessionStore keeps the session in memory, for tests and ephemeral runs.
type MemorySessionStore struct {
	record []byte
	mu     sync.RWMutex
}

// NewMemorySessionStore creates an empty in-memory store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (m *MemorySessionStore) Load() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.load()
}

func (m *MemorySessionStore) Save(session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(session)
}

func (m *MemorySessionStore) UpdateAccessToken(access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.load()
	if current.Credentials == nil {
		return nil
	}
	creds := current.Credentials.WithAccess(access)
	current.Credentials = &creds
	return m.save(current)
}

func (m *MemorySessionStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}

// HasRecord reports whether a session record is stored
func (m *MemorySessionStore) HasRecord() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.record != nil
}

// The record is kept serialized so callers never share pointers with the store.
func (m *MemorySessionStore) load() domain.Session {
	if m.record == nil {
		return domain.Session{}
	}
	var record domain.SessionRecord
	if err := json.Unmarshal(m.record, &record); err != nil {
		return domain.Session{}
	}
	return domain.SessionFromRecord(record)
}

func (m *MemorySessionStore) save(session domain.Session) error {
	if session.Credentials == nil {
		m.record = nil
		return nil
	}
	if err := session.Credentials.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(session.ToRecord())
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.record = data
	return nil
}

var (
	_ ports.SessionStore = (*SecureFileSessionStore)(nil)
	_ ports.SessionStore = (*MemorySessionStore)(nil)
)
