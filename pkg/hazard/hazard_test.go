package hazard

import (
	"path/filepath"
	"testing"

	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/model"
	"github.com/Borislavv/page-hazard/pkg/prometheus/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_InvalidCapacity(t *testing.T) {
	_, err := NewTable(0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestAcquire_CapacityBound(t *testing.T) {
	const capacity = 4
	m, rec := newManager(false)
	s := newSession(t, 1, capacity)
	pages := residentPages(capacity + 1)

	for _, p := range pages[:capacity] {
		require.True(t, m.Acquire(s, p))
	}
	assert.Equal(t, capacity, s.Hazards().Occupied())

	extra := pages[capacity]
	assert.False(t, m.Acquire(s, extra))
	assert.Equal(t, model.InMemory, extra.State())

	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrTableFull)
	assert.False(t, IsFatal(errs[0]))

	for i, p := range pages[:capacity] {
		assert.Same(t, p, s.Hazards().Slot(i).Page())
	}
	_, held := s.Hazards().Find(extra)
	assert.False(t, held)
}

func TestRelease_FreesExactlyOneSlot(t *testing.T) {
	m, rec := newManager(false)
	s := newSession(t, 1, 2)
	pages := residentPages(3)

	require.True(t, m.Acquire(s, pages[0]))
	require.True(t, m.Acquire(s, pages[1]))
	require.False(t, m.Acquire(s, pages[2]))

	m.Release(s, pages[0])
	assert.Equal(t, 1, s.Hazards().Occupied())
	require.True(t, m.Acquire(s, pages[2]))
	assert.Same(t, pages[2], s.Hazards().Slot(0).Page())
	assert.Empty(t, rec.Fatals())
}

func TestAcquireReleaseAcquire_RoundTrip(t *testing.T) {
	m, _ := newManager(false)
	s := newSession(t, 1, 3)
	p := residentPages(1)[0]

	before := s.Hazards().Occupied()
	require.True(t, m.Acquire(s, p))
	m.Release(s, p)
	require.True(t, m.Acquire(s, p))
	m.Release(s, p)
	assert.Equal(t, before, s.Hazards().Occupied())
}

func TestAcquire_LostRace(t *testing.T) {
	m, rec := newManager(false)
	s := newSession(t, 1, 3)
	p := residentPages(1)[0]

	require.True(t, p.CompareAndSwapState(model.InMemory, model.LockedForEviction))
	before := s.Hazards().Occupied()

	assert.False(t, m.Acquire(s, p))
	assert.Equal(t, before, s.Hazards().Occupied())
	assert.Equal(t, model.LockedForEviction, p.State())
	assert.Empty(t, rec.Errors())

	// not resident at all
	cold := model.NewPage(99)
	assert.False(t, m.Acquire(s, cold))
	assert.Zero(t, s.Hazards().Occupied())
}

func TestRelease_WithoutAcquireIsFatal(t *testing.T) {
	m, rec := newManager(false)
	s := newSession(t, 7, 2)
	pages := residentPages(2)

	m.Release(s, pages[0])
	fatals := rec.Fatals()
	require.Len(t, fatals, 1)
	assert.ErrorIs(t, fatals[0], ErrReferenceNotFound)
	assert.True(t, IsFatal(fatals[0]))

	// double release
	require.True(t, m.Acquire(s, pages[1]))
	m.Release(s, pages[1])
	m.Release(s, pages[1])
	assert.Len(t, rec.Fatals(), 2)
}

func TestNilPage_IsFatal(t *testing.T) {
	m, rec := newManager(false)
	s := newSession(t, 1, 2)

	assert.False(t, m.Acquire(s, nil))
	m.Release(s, nil)

	fatals := rec.Fatals()
	require.Len(t, fatals, 2)
	for _, err := range fatals {
		assert.ErrorIs(t, err, ErrNilPage)
	}
	assert.Zero(t, s.Hazards().Occupied())
}

func TestAcquire_SamePageTwiceTakesTwoSlots(t *testing.T) {
	m, rec := newManager(false)
	s := newSession(t, 1, 3)
	p := residentPages(1)[0]

	require.True(t, m.Acquire(s, p))
	require.True(t, m.Acquire(s, p))
	assert.Equal(t, 2, s.Hazards().Occupied())

	m.Release(s, p)
	assert.Equal(t, 1, s.Hazards().Occupied())
	m.Release(s, p)
	assert.Zero(t, s.Hazards().Occupied())
	assert.Empty(t, rec.Fatals())
}

func TestScenario_CapacityThree(t *testing.T) {
	m, _ := newManager(false)
	s := newSession(t, 1, 3)
	pages := residentPages(4)
	a, b, c, d := pages[0], pages[1], pages[2], pages[3]

	assert.True(t, m.Acquire(s, a))
	assert.True(t, m.Acquire(s, b))
	assert.True(t, m.Acquire(s, c))
	assert.False(t, m.Acquire(s, d))

	for _, p := range []*model.Page{a, b, c} {
		_, ok := s.Hazards().Find(p)
		assert.True(t, ok)
	}

	bSlot, ok := s.Hazards().Find(b)
	require.True(t, ok)
	m.Release(s, b)

	var occupied []*model.Page
	s.Hazards().Range(func(_ int, slot *Slot) bool {
		if p := slot.Page(); p != nil {
			occupied = append(occupied, p)
		}
		return true
	})
	assert.Equal(t, []*model.Page{a, c}, occupied)

	require.True(t, m.Acquire(s, d))
	dSlot, ok := s.Hazards().Find(d)
	require.True(t, ok)
	assert.Equal(t, bSlot, dSlot)
}

func TestTableFullReports_AreRateLimited(t *testing.T) {
	rec := &recorder{}
	m := NewManager(config.Hazard{ReportRate: 0.001, ReportBurst: 1}, rec, metrics.New())
	s := newSession(t, 1, 1)
	pages := residentPages(2)

	require.True(t, m.Acquire(s, pages[0]))
	for i := 0; i < 5; i++ {
		assert.False(t, m.Acquire(s, pages[1]))
	}
	assert.Len(t, rec.Errors(), 1)
}

func TestDumpActive_RecordsSites(t *testing.T) {
	m, _ := newManager(true)
	s := newSession(t, 1, 3)
	pages := residentPages(2)

	require.True(t, m.Acquire(s, pages[0]))
	require.True(t, m.Acquire(s, pages[1]))

	active := m.DumpActive(s)
	require.Len(t, active, 2)
	assert.Equal(t, uint64(1), active[0].PageID)
	assert.Equal(t, 1, active[1].Slot)
	assert.Equal(t, "in-memory", active[0].State)
	assert.Contains(t, active[0].Site, "hazard_test.go")

	site := s.Hazards().Slot(0).Site()
	require.NotNil(t, site)
	assert.Equal(t, "hazard_test.go", filepath.Base(site.File))
	assert.Contains(t, site.Func, "TestDumpActive_RecordsSites")
}

func TestDumpActive_OffWithoutDiagnostics(t *testing.T) {
	if compiledDiagnostics {
		t.Skip("built with hazarddiag")
	}
	m, _ := newManager(false)
	s := newSession(t, 1, 2)
	p := residentPages(1)[0]

	require.True(t, m.Acquire(s, p))
	assert.Nil(t, m.DumpActive(s))
	assert.Nil(t, s.Hazards().Slot(0).Site())

	snapshot := m.Snapshot(s)
	require.Len(t, snapshot, 1)
	assert.Empty(t, snapshot[0].Site)
}
