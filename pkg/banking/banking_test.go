package banking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telbank/voiceline/pkg/store"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	st := store.NewMemoryWithDemoData()
	svc := NewService(st, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	}
	return svc, st
}

func authedCaller() Caller {
	return Caller{SessionID: "sess-1", CustomerID: "CUST00001", Authenticated: true}
}

func TestVerifyIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	caller := Caller{SessionID: "sess-1"}

	id, err := svc.VerifyIdentity(ctx, caller, "CUST00001", "1234")
	require.NoError(t, err)
	assert.Equal(t, "Maria Santos", id.CustomerName)

	_, err = svc.VerifyIdentity(ctx, caller, "CUST00001", "9999")
	assert.ErrorIs(t, err, ErrInvalidPIN)

	_, err = svc.VerifyIdentity(ctx, caller, "CUST99999", "1234")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSensitiveOperationsRequireAuth(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	unauthed := Caller{SessionID: "sess-1"}

	_, err := svc.GetBalance(ctx, unauthed, "CUST00001")
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = svc.BlockCard(ctx, unauthed, "CARD00001", "lost")
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = svc.RecentTransactions(ctx, unauthed, "CUST00001", 5)
	assert.ErrorIs(t, err, ErrAuthRequired)

	email := "x@example.com"
	_, err = svc.UpdateProfile(ctx, unauthed, "CUST00001", &email, nil)
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = svc.RequestStatement(ctx, unauthed, "CUST00001", "monthly")
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestGetBalance(t *testing.T) {
	svc, _ := newTestService(t)

	bal, err := svc.GetBalance(context.Background(), authedCaller(), "CUST00001")
	require.NoError(t, err)
	assert.InDelta(t, 17743.87, bal.Total, 0.001)
	assert.Len(t, bal.Accounts, 2)

	_, err = svc.GetBalance(context.Background(), authedCaller(), "CUST99999")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBlockCard(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	res, err := svc.BlockCard(ctx, authedCaller(), "CARD00001", "reported lost")
	require.NoError(t, err)
	assert.Equal(t, "BLK-CARD00001-20260831103000", res.ReferenceID)
	assert.Equal(t, "Card ending in 4242 has been blocked successfully.", res.Message)

	// Irreversible: second attempt fails.
	_, err = svc.BlockCard(ctx, authedCaller(), "CARD00001", "stolen")
	assert.ErrorIs(t, err, store.ErrAlreadyBlocked)

	// Audit trail carries the reference id.
	var found bool
	for _, a := range st.Actions() {
		if a.ToolName == "block_card" && a.Error == "" {
			found = true
			assert.Equal(t, "BLK-CARD00001-20260831103000", a.Output["reference_id"])
		}
	}
	assert.True(t, found, "block_card audit entry missing")
}

func TestCardDetailsWithoutAuth(t *testing.T) {
	svc, _ := newTestService(t)

	card, err := svc.CardDetails(context.Background(), Caller{SessionID: "s"}, "CARD00001")
	require.NoError(t, err)
	assert.Equal(t, "4242", card.Last4)
	assert.Equal(t, store.CardActive, card.Status)
}

func TestUpdateProfile(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, authedCaller(), "CUST00001", nil, nil)
	assert.ErrorIs(t, err, ErrNoFields)

	phone := "+15550199"
	res, err := svc.UpdateProfile(ctx, authedCaller(), "CUST00001", nil, &phone)
	require.NoError(t, err)
	assert.Equal(t, []string{"phone"}, res.UpdatedFields)

	c, err := st.GetCustomer(ctx, "CUST00001")
	require.NoError(t, err)
	assert.Equal(t, "+15550199", c.Phone)
}

func TestRequestStatement(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.RequestStatement(context.Background(), authedCaller(), "CUST00001", "")
	require.NoError(t, err)
	assert.Equal(t, "monthly", res.Period)
	assert.Equal(t, "STMT-CUST00001-20260831", res.ReferenceID)
	assert.Contains(t, res.Message, "emailed within 24 hours")
}

func TestCreateLead(t *testing.T) {
	svc, _ := newTestService(t)

	lead, err := svc.CreateLead(context.Background(), Caller{SessionID: "s"},
		"New Customer", "new@example.com", "+15550123", "checking")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(lead.ReferenceID, "LEAD-"))
	assert.Contains(t, lead.Message, "2 business days")
}

func TestRecentTransactionsMockShape(t *testing.T) {
	svc, _ := newTestService(t)

	txns, err := svc.RecentTransactions(context.Background(), authedCaller(), "CUST00001", 3)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, -50.00, txns[0].Amount)
	assert.Equal(t, "Grocery", txns[0].Category)
	assert.Equal(t, "Dining", txns[1].Category)
}
