package orchestrator

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-core/internal/event"
	"relay-core/pkg/cache"
	"relay-core/pkg/near"
)

// queueScheduler 只记录任务, 由另一个进程处理
type queueScheduler struct{ jobs []SignJob }

func (s *queueScheduler) ScheduleSign(_ context.Context, job SignJob) error {
	s.jobs = append(s.jobs, job)
	return nil
}

func TestStatusVisibleAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mr := miniredis.RunT(t)

	newStatus := func() cache.Cache {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return cache.NewRedisCache(client, "relay:")
	}

	queue := &queueScheduler{}
	api := New(f.compiler, f.signer, f.relayer, f.broker, newStatus())
	api.UseScheduler(queue)
	worker := New(f.compiler, f.signer, f.relayer, f.broker, newStatus())

	job := f.evmJob(t, near.MustParseNear("1"))
	require.NoError(t, api.Begin(ctx, job))

	ev, ok := api.Status(ctx, job.ID)
	require.True(t, ok)
	assert.Equal(t, event.StatusAwaitingSignature, ev.Status)

	require.Len(t, queue.jobs, 1)
	require.NoError(t, worker.Process(ctx, queue.jobs[0]))

	ev, ok = api.Status(ctx, job.ID)
	require.True(t, ok)
	assert.Equal(t, event.StatusRelayed, ev.Status)
	assert.Equal(t, "hash", ev.TxHash)
}
