// Package banking implements the mock core-banking operations behind the
// conversation handlers: identity verification, balances, card blocking,
// profile updates, statements, and account-opening leads.
//
// Sensitive operations take a Caller and refuse to run unless the caller
// is authenticated. Every operation is appended to the audit trail.
package banking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/telbank/voiceline/pkg/store"
)

// Sentinel errors.
var (
	// ErrAuthRequired is returned when a sensitive operation is attempted
	// without an authenticated caller.
	ErrAuthRequired = errors.New("banking: authentication required")

	// ErrInvalidPIN is returned when PIN verification fails.
	ErrInvalidPIN = errors.New("banking: invalid PIN")

	// ErrNoFields is returned when a profile update carries no editable fields.
	ErrNoFields = errors.New("banking: no valid fields to update")
)

// Caller identifies who is invoking an operation and whether they have
// passed identity verification.
type Caller struct {
	SessionID     string
	CustomerID    string
	Authenticated bool
}

// Service exposes the banking operations over a Store.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a banking service. A nil logger falls back to the
// default slog logger.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		logger: logger.With("component", "banking"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) requireAuth(caller Caller, tool string) error {
	if !caller.Authenticated {
		s.logger.Warn("auth check failed", "tool", tool, "session_id", caller.SessionID)
		return fmt.Errorf("%s: %w", tool, ErrAuthRequired)
	}
	return nil
}

// audit appends an audit-trail entry. Persistence failures are logged,
// never surfaced to the caller.
func (s *Service) audit(ctx context.Context, caller Caller, tool string, input, output map[string]any, opErr error) {
	a := &store.Action{
		SessionID:  caller.SessionID,
		ActionType: "tool_call",
		ToolName:   tool,
		Input:      input,
		Output:     output,
		Timestamp:  s.now(),
	}
	if opErr != nil {
		a.Error = opErr.Error()
	}
	if err := s.store.LogAction(ctx, a); err != nil {
		s.logger.Warn("audit write failed", "tool", tool, "error", err)
	}
}

// Identity is the result of a successful PIN verification.
type Identity struct {
	CustomerID   string
	CustomerName string
}

// VerifyIdentity checks a customer's PIN against the stored bcrypt hash.
// An unknown customer returns store.ErrNotFound; a wrong PIN returns
// ErrInvalidPIN. Verification attempts are not audited with the raw PIN.
func (s *Service) VerifyIdentity(ctx context.Context, caller Caller, customerID, pin string) (*Identity, error) {
	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		s.logger.Warn("verify_identity: customer not found", "customer_id", customerID)
		s.audit(ctx, caller, "verify_identity", map[string]any{"customer_id": customerID}, nil, err)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PINHash), []byte(pin)); err != nil {
		s.logger.Warn("verify_identity: invalid PIN", "customer_id", customerID)
		s.audit(ctx, caller, "verify_identity", map[string]any{"customer_id": customerID}, nil, ErrInvalidPIN)
		return nil, ErrInvalidPIN
	}

	s.logger.Info("verify_identity: success", "customer_id", customerID)
	s.audit(ctx, caller, "verify_identity",
		map[string]any{"customer_id": customerID},
		map[string]any{"customer_name": customer.Name}, nil)
	return &Identity{CustomerID: customerID, CustomerName: customer.Name}, nil
}

// Balance summarizes a customer's accounts.
type Balance struct {
	Total    float64
	Accounts []store.Account
}

// GetBalance returns all account balances for the caller's customer.
// Requires authentication.
func (s *Service) GetBalance(ctx context.Context, caller Caller, customerID string) (*Balance, error) {
	if err := s.requireAuth(caller, "get_account_balance"); err != nil {
		return nil, err
	}

	accounts, err := s.store.ListAccounts(ctx, customerID)
	if err != nil {
		s.audit(ctx, caller, "get_account_balance", map[string]any{"customer_id": customerID}, nil, err)
		return nil, err
	}
	if len(accounts) == 0 {
		err := fmt.Errorf("banking: no accounts for %s: %w", customerID, store.ErrNotFound)
		s.audit(ctx, caller, "get_account_balance", map[string]any{"customer_id": customerID}, nil, err)
		return nil, err
	}

	var total float64
	for _, a := range accounts {
		total += a.Balance
	}

	s.logger.Info("get_account_balance", "customer_id", customerID, "total", total)
	s.audit(ctx, caller, "get_account_balance",
		map[string]any{"customer_id": customerID},
		map[string]any{"total_balance": total, "account_count": len(accounts)}, nil)
	return &Balance{Total: total, Accounts: accounts}, nil
}

// Transaction is one mock ledger entry.
type Transaction struct {
	Date        time.Time
	Description string
	Amount      float64
	Category    string
}

// RecentTransactions returns mock recent activity. Requires authentication.
// A real deployment would read a transactions table here.
func (s *Service) RecentTransactions(ctx context.Context, caller Caller, customerID string, count int) ([]Transaction, error) {
	if err := s.requireAuth(caller, "get_recent_transactions"); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 5
	}

	txns := make([]Transaction, count)
	for i := 0; i < count; i++ {
		category := "Grocery"
		if i%2 == 1 {
			category = "Dining"
		}
		txns[i] = Transaction{
			Date:        s.now().AddDate(0, 0, -i),
			Description: fmt.Sprintf("Transaction %d", i+1),
			Amount:      -50.00 * float64(i+1),
			Category:    category,
		}
	}

	s.audit(ctx, caller, "get_recent_transactions",
		map[string]any{"customer_id": customerID, "count": count},
		map[string]any{"returned": len(txns)}, nil)
	return txns, nil
}

// CardDetails returns a card's status. No authentication needed so the
// flow can tell a user their card is already blocked.
func (s *Service) CardDetails(ctx context.Context, caller Caller, cardID string) (*store.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		s.audit(ctx, caller, "get_card_details", map[string]any{"card_id": cardID}, nil, err)
		return nil, err
	}
	s.audit(ctx, caller, "get_card_details",
		map[string]any{"card_id": cardID},
		map[string]any{"status": card.Status, "last_4": card.Last4}, nil)
	return card, nil
}

// BlockResult confirms a card block.
type BlockResult struct {
	CardID      string
	ReferenceID string
	BlockedAt   time.Time
	Message     string
}

// BlockCard blocks a card. The block is irreversible through this service.
// Requires authentication; blocking an already-blocked card returns
// store.ErrAlreadyBlocked.
func (s *Service) BlockCard(ctx context.Context, caller Caller, cardID, reason string) (*BlockResult, error) {
	if err := s.requireAuth(caller, "block_card"); err != nil {
		return nil, err
	}

	at := s.now()
	card, err := s.store.BlockCard(ctx, cardID, reason, at)
	if err != nil {
		s.audit(ctx, caller, "block_card", map[string]any{"card_id": cardID, "reason": reason}, nil, err)
		return nil, err
	}

	ref := fmt.Sprintf("BLK-%s-%s", cardID, at.Format("20060102150405"))
	s.logger.Warn("CARD BLOCKED", "card_id", cardID, "reason", reason, "reference_id", ref,
		"session_id", caller.SessionID, "customer_id", caller.CustomerID)
	s.audit(ctx, caller, "block_card",
		map[string]any{"card_id": cardID, "reason": reason},
		map[string]any{"reference_id": ref}, nil)

	return &BlockResult{
		CardID:      cardID,
		ReferenceID: ref,
		BlockedAt:   at,
		Message:     fmt.Sprintf("Card ending in %s has been blocked successfully.", card.Last4),
	}, nil
}

// ProfileUpdate confirms a profile change.
type ProfileUpdate struct {
	UpdatedFields []string
	Message       string
}

// UpdateProfile changes a customer's contact details. Only email and phone
// are editable through the agent. Requires authentication.
func (s *Service) UpdateProfile(ctx context.Context, caller Caller, customerID string, email, phone *string) (*ProfileUpdate, error) {
	if err := s.requireAuth(caller, "update_profile"); err != nil {
		return nil, err
	}
	if email == nil && phone == nil {
		return nil, ErrNoFields
	}

	if err := s.store.UpdateCustomerProfile(ctx, customerID, email, phone); err != nil {
		s.audit(ctx, caller, "update_profile", map[string]any{"customer_id": customerID}, nil, err)
		return nil, err
	}

	var fields []string
	if email != nil {
		fields = append(fields, "email")
	}
	if phone != nil {
		fields = append(fields, "phone")
	}

	s.logger.Info("update_profile", "customer_id", customerID, "fields", fields)
	s.audit(ctx, caller, "update_profile",
		map[string]any{"customer_id": customerID, "fields": fields},
		map[string]any{"updated_fields": fields}, nil)
	return &ProfileUpdate{
		UpdatedFields: fields,
		Message:       "Profile updated successfully",
	}, nil
}

// StatementRequest confirms a statement order.
type StatementRequest struct {
	ReferenceID string
	Period      string
	Message     string
}

// RequestStatement orders an account statement for delivery by email.
// Requires authentication. Period is monthly, quarterly, or annual.
func (s *Service) RequestStatement(ctx context.Context, caller Caller, customerID, period string) (*StatementRequest, error) {
	if err := s.requireAuth(caller, "request_statement"); err != nil {
		return nil, err
	}
	if period == "" {
		period = "monthly"
	}

	ref := fmt.Sprintf("STMT-%s-%s", customerID, s.now().Format("20060102"))
	s.logger.Info("request_statement", "customer_id", customerID, "period", period, "reference_id", ref)
	s.audit(ctx, caller, "request_statement",
		map[string]any{"customer_id": customerID, "period": period},
		map[string]any{"reference_id": ref}, nil)

	return &StatementRequest{
		ReferenceID: ref,
		Period:      period,
		Message:     fmt.Sprintf("Your %s statement will be emailed within 24 hours.", period),
	}, nil
}

// Lead confirms an account-opening lead capture.
type Lead struct {
	ReferenceID string
	Message     string
}

// CreateLead records an account-opening lead. New customers have no
// identity to verify, so no authentication is needed.
func (s *Service) CreateLead(ctx context.Context, caller Caller, name, email, phone, accountType string) (*Lead, error) {
	ref := fmt.Sprintf("LEAD-%s", s.now().Format("20060102150405"))
	s.logger.Info("create_lead", "name", name, "reference_id", ref)
	s.audit(ctx, caller, "create_lead",
		map[string]any{"name": name, "email": email, "phone": phone, "account_type": accountType},
		map[string]any{"reference_id": ref}, nil)

	return &Lead{
		ReferenceID: ref,
		Message:     "Thank you! A representative will contact you within 2 business days.",
	}, nil
}
