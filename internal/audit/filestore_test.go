package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/brokerd/internal/brokerapi"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	return s
}

func TestPutThenGetRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := brokerapi.ExecutionRecord{CallableID: "skill:greet@1.0.0@abc", Status: "ok", StartedAt: time.Unix(1000, 0)}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "skill:greet@1.0.0@abc")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Status)
}

func TestListFiltersByStatusAndSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, brokerapi.ExecutionRecord{CallableID: "a", Status: "ok", StartedAt: time.Unix(100, 0)}))
	require.NoError(t, s.Put(ctx, brokerapi.ExecutionRecord{CallableID: "b", Status: "error", StartedAt: time.Unix(200, 0)}))
	require.NoError(t, s.Put(ctx, brokerapi.ExecutionRecord{CallableID: "c", Status: "ok", StartedAt: time.Unix(300, 0)}))

	okOnly, err := s.List(ctx, Filter{Status: "ok"})
	require.NoError(t, err)
	assert.Len(t, okOnly, 2)

	recent, err := s.List(ctx, Filter{Since: time.Unix(150, 0)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestListRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, brokerapi.ExecutionRecord{CallableID: "x", Status: "ok", StartedAt: time.Unix(int64(i), 0)}))
	}
	out, err := s.List(ctx, Filter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestPruneDropsRecordsBeforeCutoff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, brokerapi.ExecutionRecord{CallableID: "old", Status: "ok", StartedAt: time.Unix(100, 0)}))
	require.NoError(t, s.Put(ctx, brokerapi.ExecutionRecord{CallableID: "new", Status: "ok", StartedAt: time.Unix(10000, 0)}))

	dropped, err := s.Prune(ctx, time.Unix(5000, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)

	remaining, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].CallableID)
}
