package repository

import (
	"context"
	"testing"
	"time"

	"authservice/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newLedger(t *testing.T) (*RefreshTokenRepository, *testClock, string) {
	t.Helper()
	db := newTestDB(t)
	u := newUser("a@example.com", "alice")
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))

	clock := &testClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	return NewRefreshTokenRepository(db).WithClock(clock.Now), clock, u.ID
}

func TestLedger_StoreAndConsume(t *testing.T) {
	ledger, clock, userID := newLedger(t)
	ctx := context.Background()

	rec, err := ledger.Store(ctx, userID, "jti-1", time.Hour, domain.ClientMeta{UserAgent: "curl/8", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.False(t, rec.IsRevoked)
	assert.Equal(t, clock.t.Add(time.Hour), rec.ExpiresAt)
	assert.Equal(t, "curl/8", rec.UserAgent)

	owner, err := ledger.ValidateAndConsume(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, userID, owner)

	// success does not revoke
	owner, err = ledger.ValidateAndConsume(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, userID, owner)
}

func TestLedger_ConsumeFailures(t *testing.T) {
	ledger, _, userID := newLedger(t)
	ctx := context.Background()

	_, err := ledger.ValidateAndConsume(ctx, "unknown")
	assert.ErrorIs(t, err, ErrLedgerNotFound)

	_, err = ledger.Store(ctx, userID, "jti-1", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)
	flipped, err := ledger.Revoke(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, flipped)

	_, err = ledger.ValidateAndConsume(ctx, "jti-1")
	assert.ErrorIs(t, err, ErrLedgerAlreadyRevoked)
}

func TestLedger_ExpiryRevokesOnDiscovery(t *testing.T) {
	ledger, clock, userID := newLedger(t)
	ctx := context.Background()

	_, err := ledger.Store(ctx, userID, "jti-1", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Hour)
	_, err = ledger.ValidateAndConsume(ctx, "jti-1")
	require.NoError(t, err, "exactly at expiry is still valid")

	clock.t = clock.t.Add(time.Second)
	_, err = ledger.ValidateAndConsume(ctx, "jti-1")
	assert.ErrorIs(t, err, ErrLedgerExpired)

	_, err = ledger.ValidateAndConsume(ctx, "jti-1")
	assert.ErrorIs(t, err, ErrLedgerAlreadyRevoked)
}

func TestLedger_RevokeIsCompareAndSet(t *testing.T) {
	ledger, _, userID := newLedger(t)
	ctx := context.Background()

	_, err := ledger.Store(ctx, userID, "jti-1", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)

	first, err := ledger.Revoke(ctx, "jti-1")
	require.NoError(t, err)
	second, err := ledger.Revoke(ctx, "jti-1")
	require.NoError(t, err)
	missing, err := ledger.Revoke(ctx, "nope")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.False(t, missing)
}

func TestLedger_RevokeAllForUser(t *testing.T) {
	ledger, clock, userID := newLedger(t)
	ctx := context.Background()

	for _, jti := range []string{"a", "b", "c"} {
		_, err := ledger.Store(ctx, userID, jti, time.Hour, domain.ClientMeta{})
		require.NoError(t, err)
	}

	n, err := ledger.RevokeAllForUser(ctx, userID, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	active, err := ledger.ListActiveForUser(ctx, userID, clock.t)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].Token)

	n, err = ledger.RevokeAllForUser(ctx, userID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLedger_ListActiveSkipsExpiredAndRevoked(t *testing.T) {
	ledger, clock, userID := newLedger(t)
	ctx := context.Background()

	_, err := ledger.Store(ctx, userID, "short", time.Minute, domain.ClientMeta{})
	require.NoError(t, err)
	_, err = ledger.Store(ctx, userID, "long", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)
	_, err = ledger.Store(ctx, userID, "revoked", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)
	_, err = ledger.Revoke(ctx, "revoked")
	require.NoError(t, err)

	active, err := ledger.ListActiveForUser(ctx, userID, clock.t.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "long", active[0].Token)
}

func TestLedger_SweepExpired(t *testing.T) {
	ledger, clock, userID := newLedger(t)
	ctx := context.Background()

	_, err := ledger.Store(ctx, userID, "old", time.Minute, domain.ClientMeta{})
	require.NoError(t, err)
	_, err = ledger.Store(ctx, userID, "revoked-but-live", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)
	_, err = ledger.Revoke(ctx, "revoked-but-live")
	require.NoError(t, err)

	n, err := ledger.SweepExpired(ctx, clock.t.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n, "expires_at == now is not swept")

	n, err = ledger.SweepExpired(ctx, clock.t.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = ledger.ValidateAndConsume(ctx, "old")
	assert.ErrorIs(t, err, ErrLedgerNotFound)
	_, err = ledger.ValidateAndConsume(ctx, "revoked-but-live")
	assert.ErrorIs(t, err, ErrLedgerAlreadyRevoked)
}

func TestLedger_GetAndRevokeByID(t *testing.T) {
	ledger, _, userID := newLedger(t)
	ctx := context.Background()

	rec, err := ledger.Store(ctx, userID, "jti-1", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)

	got, err := ledger.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "jti-1", got.Token)

	_, err = ledger.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrLedgerNotFound)

	ok, err := ledger.RevokeByID(ctx, "someone-else", rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ledger.RevokeByID(ctx, userID, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_DuplicateJTI(t *testing.T) {
	ledger, _, userID := newLedger(t)
	ctx := context.Background()

	_, err := ledger.Store(ctx, userID, "jti-1", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)
	_, err = ledger.Store(ctx, userID, "jti-1", time.Hour, domain.ClientMeta{})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	u := newUser("a@example.com", "alice")
	require.NoError(t, store.Users().Create(ctx, u))

	err := store.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.Ledger().Store(ctx, u.ID, "jti-1", time.Hour, domain.ClientMeta{}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = store.Ledger().ValidateAndConsume(ctx, "jti-1")
	assert.ErrorIs(t, err, ErrLedgerNotFound)
}
