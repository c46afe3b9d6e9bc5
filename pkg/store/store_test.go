package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDemoDataPINs(t *testing.T) {
	m := NewMemoryWithDemoData()

	c, err := m.GetCustomer(context.Background(), "CUST00001")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(c.PINHash), []byte("1234")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(c.PINHash), []byte("0000")))
}

func TestGetCustomerNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetCustomer(context.Background(), "CUST99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCustomerProfile(t *testing.T) {
	m := NewMemoryWithDemoData()
	ctx := context.Background()

	email := "new@example.com"
	require.NoError(t, m.UpdateCustomerProfile(ctx, "CUST00001", &email, nil))

	c, err := m.GetCustomer(ctx, "CUST00001")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", c.Email)
	assert.Equal(t, "+15550100", c.Phone, "nil field left untouched")
}

func TestListAccounts(t *testing.T) {
	m := NewMemoryWithDemoData()

	accounts, err := m.ListAccounts(context.Background(), "CUST00001")
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	accounts, err = m.ListAccounts(context.Background(), "CUST99999")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestBlockCard(t *testing.T) {
	m := NewMemoryWithDemoData()
	ctx := context.Background()
	at := time.Now().UTC()

	card, err := m.BlockCard(ctx, "CARD00001", "reported lost", at)
	require.NoError(t, err)
	assert.Equal(t, CardBlocked, card.Status)
	assert.Equal(t, "reported lost", card.BlockedReason)
	require.NotNil(t, card.BlockedAt)

	// Second block is rejected without clobbering the original reason.
	card, err = m.BlockCard(ctx, "CARD00001", "stolen", at.Add(time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyBlocked)
	assert.Equal(t, "reported lost", card.BlockedReason)

	_, err = m.BlockCard(ctx, "CARD99999", "lost", at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	custID := "CUST00001"
	authed := true
	require.NoError(t, m.UpdateSession(ctx, id, SessionUpdate{
		CustomerID:    &custID,
		Authenticated: &authed,
	}))
	require.NoError(t, m.CloseSession(ctx, id, 95*time.Second))

	sessions, err := m.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "CUST00001", sessions[0].CustomerID)
	assert.True(t, sessions[0].Authenticated)
	assert.Equal(t, 95, sessions[0].DurationSeconds)
	assert.NotNil(t, sessions[0].EndedAt)
}

func TestListSessionsNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, _ := m.CreateSession(ctx)
	m.mu.Lock()
	m.sessions[first].StartedAt = time.Now().UTC().Add(-time.Hour)
	m.mu.Unlock()
	second, _ := m.CreateSession(ctx)

	sessions, err := m.ListSessions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, second, sessions[0].SessionID)
}

func TestTranscriptsKeepOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, _ := m.CreateSession(ctx)

	for _, content := range []string{"hello", "hi, how can I help?", "check my balance"} {
		require.NoError(t, m.AppendTranscript(ctx, &Transcript{
			SessionID: id,
			Speaker:   "user",
			Content:   content,
		}))
	}

	got, err := m.ListTranscripts(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "hello", got[0].Content)
	assert.Equal(t, "check my balance", got[2].Content)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestLogAction(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.LogAction(context.Background(), &Action{
		SessionID:  "s1",
		ActionType: "tool_call",
		ToolName:   "block_card",
		Input:      map[string]any{"card_id": "CARD00001"},
		Output:     map[string]any{"reference": "BLK-CARD00001-1700000000"},
	}))

	actions := m.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, "block_card", actions[0].ToolName)
	assert.False(t, actions[0].Timestamp.IsZero())
}
