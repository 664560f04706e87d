package session

import (
	"context"
	"strings"
	"sync"
)

// Credential is the externally issued identity pair proving who the shopper is to
// the remote authority.
type Credential struct {
	SubjectID string `json:"subject_id" dynamodbav:"subject_id"`
	Token     string `json:"token" dynamodbav:"token"`
}

// Present reports whether both halves of the credential are set.
func (c Credential) Present() bool {
	return strings.TrimSpace(c.SubjectID) != "" && strings.TrimSpace(c.Token) != ""
}

// Storage is the persisted session state of one browsing session. Only Guard
// reads or writes it.
type Storage interface {
	// Load returns the stored credential. A missing credential is the zero value, not an error.
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, c Credential) error
	Clear(ctx context.Context) error
	// ClearIf removes the stored credential only while it still equals c and
	// reports whether it did.
	ClearIf(ctx context.Context, c Credential) (bool, error)
}

// MemoryStorage keeps the credential in process memory.
type MemoryStorage struct {
	mu   sync.Mutex
	cred Credential
}

func (m *MemoryStorage) Load(ctx context.Context) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred, nil
}

func (m *MemoryStorage) Save(ctx context.Context, c Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = c
	return nil
}

func (m *MemoryStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = Credential{}
	return nil
}

func (m *MemoryStorage) ClearIf(ctx context.Context, c Credential) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred != c {
		return false, nil
	}
	m.cred = Credential{}
	return true, nil
}
