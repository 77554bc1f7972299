package attendance

import (
	"context"
	"sync"
	"time"

	"checkin/internal/ledger"
)

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu        sync.Mutex
	stations  map[string]struct{}
	tokens    map[string]string
	attendees map[string]ledger.User
	marks     map[string]map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stations:  make(map[string]struct{}),
		tokens:    make(map[string]string),
		attendees: make(map[string]ledger.User),
		marks:     make(map[string]map[string]time.Time),
	}
}

func (m *MemoryStore) UpsertStation(_ context.Context, stationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[stationID] = struct{}{}
	return nil
}

func (m *MemoryStore) SaveRefreshToken(_ context.Context, stationID, token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = stationID
	return nil
}

func (m *MemoryStore) CreateAttendee(_ context.Context, u ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attendees[u.QRCodeData]; ok {
		return ErrDuplicateCode
	}
	m.attendees[u.QRCodeData] = u
	return nil
}

func (m *MemoryStore) FindAttendee(_ context.Context, qrCode string) (ledger.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.attendees[qrCode]
	if !ok {
		return ledger.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) Marks(_ context.Context, attendeeID string) (map[string]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]time.Time, len(m.marks[attendeeID]))
	for k, v := range m.marks[attendeeID] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) InsertMark(_ context.Context, attendeeID, category string, at time.Time) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.marks[attendeeID][category]; ok {
		return existing, false, nil
	}
	if m.marks[attendeeID] == nil {
		m.marks[attendeeID] = make(map[string]time.Time)
	}
	m.marks[attendeeID][category] = at
	return at, true, nil
}
