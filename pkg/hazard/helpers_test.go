package hazard

import (
	"sync"
	"testing"

	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/model"
	"github.com/Borislavv/page-hazard/pkg/prometheus/metrics"
	"github.com/stretchr/testify/require"
)

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

func (r *recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) Fatals() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.fatals...)
}

type testSession struct {
	id    uint64
	table *Table
}

func (s *testSession) ID() uint64      { return s.id }
func (s *testSession) Hazards() *Table { return s.table }

type testRegistry []Context

func (r testRegistry) Range(fn func(ctx Context) bool) {
	for _, ctx := range r {
		if !fn(ctx) {
			return
		}
	}
}

func newSession(t *testing.T, id uint64, capacity int) *testSession {
	t.Helper()
	table, err := NewTable(capacity)
	require.NoError(t, err)
	return &testSession{id: id, table: table}
}

func newManager(diagnostics bool) (*Manager, *recorder) {
	rec := &recorder{}
	return NewManager(config.Hazard{Diagnostics: diagnostics}, rec, metrics.New()), rec
}

func residentPages(n int) []*model.Page {
	pages := make([]*model.Page, n)
	for i := range pages {
		pages[i] = model.NewResidentPage(uint64(i+1), []byte{byte(i + 1)})
	}
	return pages
}
