package jobs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *countingGenerator) GenerateAll(context.Context) (int, error) {
	g.calls.Add(1)
	return 2, g.err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRunPayouts_ReleasesLock(t *testing.T) {
	client, mr := setupRedis(t)
	gen := &countingGenerator{}
	s := NewScheduler(gen, client, newTestLogger())

	before := testutil.ToFloat64(payoutRuns.WithLabelValues("ok"))
	s.runPayouts()

	assert.Equal(t, int32(1), gen.calls.Load())
	assert.False(t, mr.Exists(payoutLockKey))
	assert.Equal(t, before+1, testutil.ToFloat64(payoutRuns.WithLabelValues("ok")))
}

func TestRunPayouts_SkipsWhenLocked(t *testing.T) {
	client, mr := setupRedis(t)
	require.NoError(t, mr.Set(payoutLockKey, "other-replica"))
	gen := &countingGenerator{}
	s := NewScheduler(gen, client, newTestLogger())

	s.runPayouts()

	assert.Equal(t, int32(0), gen.calls.Load())
	assert.True(t, mr.Exists(payoutLockKey))
}

func TestRunPayouts_RedisDownStillRuns(t *testing.T) {
	client, mr := setupRedis(t)
	mr.Close()
	gen := &countingGenerator{}
	s := NewScheduler(gen, client, newTestLogger())

	s.runPayouts()

	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestRunPayouts_CountsErrors(t *testing.T) {
	gen := &countingGenerator{err: errors.New("vendor-004: connection reset")}
	s := NewScheduler(gen, nil, newTestLogger())

	before := testutil.ToFloat64(payoutRuns.WithLabelValues("error"))
	s.runPayouts()

	assert.Equal(t, before+1, testutil.ToFloat64(payoutRuns.WithLabelValues("error")))
}

func TestStart_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingGenerator{}, nil, newTestLogger())

	assert.Error(t, s.Start("every day"))
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&countingGenerator{}, nil, newTestLogger())

	require.NoError(t, s.Start("0 2 * * *"))
	assert.NoError(t, s.Stop(context.Background()))
}
