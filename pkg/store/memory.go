package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Memory is an in-memory Store for tests and keyless development.
type Memory struct {
	mu          sync.RWMutex
	customers   map[string]*Customer
	accounts    map[string][]Account // keyed by customer id
	cards       map[string]*Card
	sessions    map[string]*Session
	transcripts map[string][]Transcript // keyed by session id
	actions     []Action
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		customers:   make(map[string]*Customer),
		accounts:    make(map[string][]Account),
		cards:       make(map[string]*Card),
		sessions:    make(map[string]*Session),
		transcripts: make(map[string][]Transcript),
	}
}

// NewMemoryWithDemoData returns an in-memory store seeded with the demo
// customers used by development and the conversation tests.
func NewMemoryWithDemoData() *Memory {
	m := NewMemory()
	m.Seed(DemoData())
	return m
}

// SeedData is a fixture bundle loaded into a store.
type SeedData struct {
	Customers []Customer
	Accounts  []Account
	Cards     []Card
}

// DemoData returns the demo fixture set. PINs are bcrypt-hashed at build
// time; CUST00001 uses PIN 1234 and CUST00002 uses PIN 5678.
func DemoData() SeedData {
	exp1 := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)
	exp2 := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	return SeedData{
		Customers: []Customer{
			{
				CustomerID: "CUST00001",
				Name:       "Maria Santos",
				Email:      "maria.santos@example.com",
				Phone:      "+15550100",
				PINHash:    mustHashPIN("1234"),
				CreatedAt:  time.Date(2022, 3, 14, 0, 0, 0, 0, time.UTC),
			},
			{
				CustomerID: "CUST00002",
				Name:       "James Okafor",
				Email:      "james.okafor@example.com",
				Phone:      "+15550101",
				PINHash:    mustHashPIN("5678"),
				CreatedAt:  time.Date(2023, 8, 2, 0, 0, 0, 0, time.UTC),
			},
		},
		Accounts: []Account{
			{AccountID: "ACC00001", CustomerID: "CUST00001", AccountType: "checking", Balance: 2543.87, Currency: "USD"},
			{AccountID: "ACC00002", CustomerID: "CUST00001", AccountType: "savings", Balance: 15200.00, Currency: "USD"},
			{AccountID: "ACC00003", CustomerID: "CUST00002", AccountType: "checking", Balance: 820.45, Currency: "USD"},
		},
		Cards: []Card{
			{CardID: "CARD00001", AccountID: "ACC00001", Last4: "4242", Status: CardActive, Expiration: &exp1},
			{CardID: "CARD00002", AccountID: "ACC00003", Last4: "9001", Status: CardActive, Expiration: &exp2},
		},
	}
}

func mustHashPIN(pin string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// Seed loads a fixture bundle into the store.
func (m *Memory) Seed(data SeedData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range data.Customers {
		c := data.Customers[i]
		m.customers[c.CustomerID] = &c
	}
	for _, a := range data.Accounts {
		m.accounts[a.CustomerID] = append(m.accounts[a.CustomerID], a)
	}
	for i := range data.Cards {
		c := data.Cards[i]
		m.cards[c.CardID] = &c
	}
}

func (m *Memory) GetCustomer(_ context.Context, customerID string) (*Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) UpdateCustomerProfile(_ context.Context, customerID string, email, phone *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return ErrNotFound
	}
	if email != nil {
		c.Email = *email
	}
	if phone != nil {
		c.Phone = *phone
	}
	return nil
}

func (m *Memory) ListAccounts(_ context.Context, customerID string) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]Account, len(m.accounts[customerID]))
	copy(accounts, m.accounts[customerID])
	return accounts, nil
}

func (m *Memory) GetCard(_ context.Context, cardID string) (*Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cards[cardID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) BlockCard(_ context.Context, cardID, reason string, at time.Time) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[cardID]
	if !ok {
		return nil, ErrNotFound
	}
	if c.Status == CardBlocked {
		cp := *c
		return &cp, ErrAlreadyBlocked
	}
	c.Status = CardBlocked
	c.BlockedAt = &at
	c.BlockedReason = reason
	cp := *c
	return &cp, nil
}

func (m *Memory) CreateSession(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.sessions[id] = &Session{SessionID: id, StartedAt: time.Now().UTC()}
	return id, nil
}

func (m *Memory) UpdateSession(_ context.Context, sessionID string, upd SessionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if upd.CustomerID != nil {
		s.CustomerID = *upd.CustomerID
	}
	if upd.Intent != nil {
		s.Intent = *upd.Intent
	}
	if upd.Authenticated != nil {
		s.Authenticated = *upd.Authenticated
	}
	if upd.AuthMethod != nil {
		s.AuthMethod = *upd.AuthMethod
	}
	if upd.Escalated != nil {
		s.Escalated = *upd.Escalated
	}
	if upd.EscalationReason != nil {
		s.EscalationReason = *upd.EscalationReason
	}
	return nil
}

func (m *Memory) CloseSession(_ context.Context, sessionID string, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	s.EndedAt = &now
	s.DurationSeconds = int(duration.Seconds())
	return nil
}

func (m *Memory) ListSessions(_ context.Context, limit int) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, *s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (m *Memory) AppendTranscript(_ context.Context, t *Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tc := *t
	if tc.Timestamp.IsZero() {
		tc.Timestamp = time.Now().UTC()
	}
	m.transcripts[tc.SessionID] = append(m.transcripts[tc.SessionID], tc)
	return nil
}

func (m *Memory) ListTranscripts(_ context.Context, sessionID string) ([]Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transcript, len(m.transcripts[sessionID]))
	copy(out, m.transcripts[sessionID])
	return out, nil
}

func (m *Memory) LogAction(_ context.Context, a *Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ac := *a
	if ac.Timestamp.IsZero() {
		ac.Timestamp = time.Now().UTC()
	}
	m.actions = append(m.actions, ac)
	return nil
}

// Actions returns a copy of the recorded audit trail. Test helper.
func (m *Memory) Actions() []Action {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Action, len(m.actions))
	copy(out, m.actions)
	return out
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
