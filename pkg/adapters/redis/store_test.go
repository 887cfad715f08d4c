package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/pkg/adapters/redis"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/results"
)

var _ ports.ResultStore = (*redis.Store)(nil)
var _ ports.DistributedLocker = (*redis.Locker)(nil)

func newBackend(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func testCampaign(system string) *results.Campaign {
	return results.NewCampaign(system, domain.SimulationConfig{
		Runs:     1,
		Schedule: []domain.SchedulePhase{{Start: 0, End: 10, NValues: 2}},
	})
}

func TestStore_Contract(t *testing.T) {
	_, client := newBackend(t)
	ports.RunResultStoreContract(t, redis.NewFromClient(client))
}

func TestStore_TTLExpiration(t *testing.T) {
	mr, client := newBackend(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	c := testCampaign("plant")
	require.NoError(t, store.SaveCampaign(ctx, c))

	ids, err := store.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, c.ID.String())

	// Expire the blob inside miniredis.
	mr.FastForward(2 * time.Second)

	_, err = store.LoadCampaign(ctx, c.ID.String())
	assert.ErrorIs(t, err, domain.ErrCampaignNotFound)

	// Index cleanup scores against the real clock, so wait out the TTL
	// before asserting the lazy prune.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_Prefix(t *testing.T) {
	mr, client := newBackend(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	c := testCampaign("plant")
	require.NoError(t, store.SaveCampaign(ctx, c))

	assert.True(t, mr.Exists("custom:app:campaign:"+c.ID.String()))
	assert.True(t, mr.Exists("custom:app:index"))

	ids, err := store.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, c.ID.String())
}

func TestLocker_MutualExclusion(t *testing.T) {
	mr, client := newBackend(t)
	locker := redis.NewLocker(client, "sluice:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("sluice:lock:sess-1"))

	// A second holder keeps polling until its context gives up.
	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "sess-1", 30*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("sluice:lock:sess-1"))

	unlock2, err := locker.Lock(ctx, "sess-1", 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_ExpiredHolderCannotUnlockSuccessor(t *testing.T) {
	mr, client := newBackend(t)
	locker := redis.NewLocker(client, "sluice:")
	ctx := context.Background()

	staleUnlock, err := locker.Lock(ctx, "sess-1", 1*time.Second)
	require.NoError(t, err)

	// The first holder's TTL lapses and another replica takes the lock.
	mr.FastForward(2 * time.Second)
	unlock, err := locker.Lock(ctx, "sess-1", 30*time.Second)
	require.NoError(t, err)

	// The stale token no longer matches, so the release is a no-op.
	require.NoError(t, staleUnlock(ctx))
	assert.True(t, mr.Exists("sluice:lock:sess-1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("sluice:lock:sess-1"))
}
