package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres connects to the database and verifies connectivity.
func NewPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		pool:   pool,
		logger: logger.With("component", "store.postgres"),
	}, nil
}

// GetCustomer fetches a customer by id.
func (p *Postgres) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT customer_id, name, COALESCE(email, ''), COALESCE(phone, ''), pin_hash, created_at
		 FROM customers WHERE customer_id = $1`, customerID)

	var c Customer
	err := row.Scan(&c.CustomerID, &c.Name, &c.Email, &c.Phone, &c.PINHash, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get customer: %w", err)
	}
	return &c, nil
}

// UpdateCustomerProfile updates the editable profile fields.
func (p *Postgres) UpdateCustomerProfile(ctx context.Context, customerID string, email, phone *string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE customers
		 SET email = COALESCE($2, email), phone = COALESCE($3, phone)
		 WHERE customer_id = $1`, customerID, email, phone)
	if err != nil {
		return fmt.Errorf("store: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAccounts returns all accounts held by a customer.
func (p *Postgres) ListAccounts(ctx context.Context, customerID string) ([]Account, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT account_id, customer_id, account_type, balance, currency
		 FROM accounts WHERE customer_id = $1 ORDER BY account_id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("store: list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.AccountID, &a.CustomerID, &a.AccountType, &a.Balance, &a.Currency); err != nil {
			return nil, fmt.Errorf("store: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetCard fetches a card by id.
func (p *Postgres) GetCard(ctx context.Context, cardID string) (*Card, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT card_id, account_id, card_number_last4, status, blocked_at,
		        COALESCE(blocked_reason, ''), expiration_date
		 FROM cards WHERE card_id = $1`, cardID)

	var c Card
	err := row.Scan(&c.CardID, &c.AccountID, &c.Last4, &c.Status, &c.BlockedAt, &c.BlockedReason, &c.Expiration)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get card: %w", err)
	}
	return &c, nil
}

// BlockCard marks a card blocked and returns the updated card.
// Blocking an already-blocked card returns ErrAlreadyBlocked.
func (p *Postgres) BlockCard(ctx context.Context, cardID, reason string, at time.Time) (*Card, error) {
	card, err := p.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.Status == CardBlocked {
		return card, ErrAlreadyBlocked
	}

	_, err = p.pool.Exec(ctx,
		`UPDATE cards SET status = $2, blocked_at = $3, blocked_reason = $4
		 WHERE card_id = $1`, cardID, CardBlocked, at, reason)
	if err != nil {
		return nil, fmt.Errorf("store: block card: %w", err)
	}

	card.Status = CardBlocked
	card.BlockedAt = &at
	card.BlockedReason = reason
	return card, nil
}

// CreateSession inserts a new call session and returns its id.
func (p *Postgres) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := p.pool.Exec(ctx,
		`INSERT INTO call_sessions (session_id, started_at) VALUES ($1, now())`, id)
	if err != nil {
		return "", fmt.Errorf("store: create session: %w", err)
	}
	return id, nil
}

// UpdateSession updates the provided session metadata fields.
func (p *Postgres) UpdateSession(ctx context.Context, sessionID string, upd SessionUpdate) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE call_sessions SET
		   customer_id       = COALESCE($2, customer_id),
		   intent            = COALESCE($3, intent),
		   authenticated     = COALESCE($4, authenticated),
		   auth_method       = COALESCE($5, auth_method),
		   escalated         = COALESCE($6, escalated),
		   escalation_reason = COALESCE($7, escalation_reason)
		 WHERE session_id = $1`,
		sessionID, upd.CustomerID, upd.Intent, upd.Authenticated,
		upd.AuthMethod, upd.Escalated, upd.EscalationReason)
	if err != nil {
		return fmt.Errorf("store: update session: %w", err)
	}
	return nil
}

// CloseSession records the end time and duration of a session.
func (p *Postgres) CloseSession(ctx context.Context, sessionID string, duration time.Duration) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE call_sessions SET ended_at = now(), duration_seconds = $2
		 WHERE session_id = $1`, sessionID, int(duration.Seconds()))
	if err != nil {
		return fmt.Errorf("store: close session: %w", err)
	}
	return nil
}

// ListSessions returns recent sessions, newest first.
func (p *Postgres) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx,
		`SELECT session_id, COALESCE(customer_id, ''), COALESCE(intent, ''),
		        authenticated, COALESCE(auth_method, ''), escalated,
		        COALESCE(escalation_reason, ''), COALESCE(duration_seconds, 0),
		        started_at, ended_at
		 FROM call_sessions ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.SessionID, &s.CustomerID, &s.Intent, &s.Authenticated,
			&s.AuthMethod, &s.Escalated, &s.EscalationReason, &s.DurationSeconds,
			&s.StartedAt, &s.EndedAt); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AppendTranscript inserts one conversation turn.
func (p *Postgres) AppendTranscript(ctx context.Context, t *Transcript) error {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO transcripts (session_id, speaker, content, pii_detected, ts)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.SessionID, t.Speaker, t.Content, t.PIIDetected, ts)
	if err != nil {
		return fmt.Errorf("store: append transcript: %w", err)
	}
	return nil
}

// ListTranscripts returns all turns of a session in order.
func (p *Postgres) ListTranscripts(ctx context.Context, sessionID string) ([]Transcript, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT session_id, speaker, content, COALESCE(pii_detected, '{}'), ts
		 FROM transcripts WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: list transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []Transcript
	for rows.Next() {
		var t Transcript
		if err := rows.Scan(&t.SessionID, &t.Speaker, &t.Content, &t.PIIDetected, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan transcript: %w", err)
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, rows.Err()
}

// LogAction appends one audit-trail entry.
func (p *Postgres) LogAction(ctx context.Context, a *Action) error {
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO agent_actions (session_id, action_type, tool_name, tool_input, tool_output, error, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.SessionID, a.ActionType, a.ToolName, a.Input, a.Output, nullIfEmpty(a.Error), ts)
	if err != nil {
		return fmt.Errorf("store: log action: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Verify Postgres implements Store at compile time.
var _ Store = (*Postgres)(nil)
