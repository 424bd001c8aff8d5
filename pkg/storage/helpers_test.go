package storage

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/prometheus/metrics"
	"github.com/Borislavv/page-hazard/pkg/session"
	"github.com/stretchr/testify/require"
)

// wait blocks until buffered victim sets are applied.
func (v *victims) wait() {
	if v != nil {
		v.cache.Wait()
	}
}

type recorder struct {
	mu     sync.Mutex
	errs   []error
	fatals []error
}

func (r *recorder) Error(_ uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) Fatal(_ uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fatals = append(r.fatals, err)
}

func (r *recorder) counts() (errs, fatals int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs), len(r.fatals)
}

// countingStore counts reads that reach the backing store.
type countingStore struct {
	Store
	reads atomic.Int64
}

func (s *countingStore) Read(ctx context.Context, id uint64) ([]byte, error) {
	s.reads.Add(1)
	return s.Store.Read(ctx, id)
}

func pageBytes(id uint64) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b, id)
	binary.LittleEndian.PutUint64(b[8:], ^id)
	return b
}

func seededStore(t *testing.T, n int) *countingStore {
	t.Helper()
	mem := NewMemoryStore()
	for id := uint64(1); id <= uint64(n); id++ {
		require.NoError(t, mem.Write(context.Background(), id, pageBytes(id)))
	}
	return &countingStore{Store: mem}
}

type fixture struct {
	cfg   *config.Config
	conn  *session.Connection
	cache *Cache
	rec   *recorder
	store *countingStore
}

func newFixture(t *testing.T, pages int, mutate func(cfg *config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Env = config.Test
	cfg.Hazard.ReportRate = 0
	cfg.Hazard.Capacity = 4
	cfg.Sessions.Max = 16
	cfg.Cache.MaxPages = 64
	cfg.Cache.Eviction.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	rec := &recorder{}
	meter := metrics.New()
	conn, err := session.NewConnection(cfg, rec, meter)
	require.NoError(t, err)

	store := seededStore(t, pages)
	cache, err := NewCache(context.Background(), cfg, conn, store, meter)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		_ = cache.Close()
	})

	return &fixture{cfg: cfg, conn: conn, cache: cache, rec: rec, store: store}
}

func (f *fixture) open(t *testing.T) *session.Session {
	t.Helper()
	s, err := f.conn.Open()
	require.NoError(t, err)
	return s
}
