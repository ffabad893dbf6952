package repository

import (
	"context"
	"testing"
	"time"

	"authservice/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AccountStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := NewStore(db).WithClock(clock.Now)
	users := store.Users()

	alice := newUser("a@example.com", "alice")
	bob := newUser("b@example.com", "bob")
	carol := newUser("c@example.com", "carol")
	for _, u := range []*domain.User{alice, bob, carol} {
		require.NoError(t, users.Create(ctx, u))
	}
	require.NoError(t, users.SetActive(ctx, carol.ID, false))
	require.NoError(t, users.TouchLastLogin(ctx, alice.ID, clock.t.Add(-time.Hour)))
	require.NoError(t, users.TouchLastLogin(ctx, bob.ID, clock.t.Add(-48*time.Hour)))

	ledger := store.Ledger()
	_, err := ledger.Store(ctx, alice.ID, "live", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)
	_, err = ledger.Store(ctx, alice.ID, "revoked", time.Hour, domain.ClientMeta{})
	require.NoError(t, err)
	_, err = ledger.Revoke(ctx, "revoked")
	require.NoError(t, err)
	_, err = ledger.Store(ctx, bob.ID, "expired", -time.Minute, domain.ClientMeta{})
	require.NoError(t, err)

	st, err := store.AccountStats(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, AccountStats{TotalUsers: 3, ActiveUsers: 2, ActiveSessions: 1, RecentLogins: 1}, st)
}
