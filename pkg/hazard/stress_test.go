package hazard

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Borislavv/page-hazard/pkg/model"
	"github.com/stretchr/testify/assert"
)

// Readers pin random pages while one evictor keeps locking, scanning, reclaiming and
// reloading them. A reader that won Acquire must never see a reclaimed buffer.
func TestProtocol_ReadersNeverSeeReclaimedPages(t *testing.T) {
	const (
		readers    = 8
		iterations = 20_000
		numPages   = 16
	)

	m, rec := newManager(false)
	pages := residentPages(numPages)
	sessions := make([]*testSession, readers)
	reg := make(testRegistry, readers)
	for i := range sessions {
		sessions[i] = newSession(t, uint64(i+1), 4)
		reg[i] = sessions[i]
	}

	var (
		stop      atomic.Bool
		acquired  atomic.Int64
		lostRaces atomic.Int64
		corrupted atomic.Int64
		reclaimed atomic.Int64
		backoffs  atomic.Int64
	)

	evictorDone := make(chan struct{})
	go func() {
		defer close(evictorDone)
		for i := 0; !stop.Load(); i++ {
			p := pages[i%numPages]
			if !p.CompareAndSwapState(model.InMemory, model.LockedForEviction) {
				continue
			}
			if _, busy := m.Referenced(reg, p); busy {
				p.SetState(model.InMemory)
				backoffs.Add(1)
				continue
			}
			m.ValidateNotReferenced(reg, p)
			p.Reclaim()
			reclaimed.Add(1)
			p.SetState(model.Disk)

			// reload
			p.SetState(model.Reading)
			p.Load([]byte{byte(p.ID())})
			p.SetState(model.InMemory)
		}
	}()

	wg := sync.WaitGroup{}
	wg.Add(readers)
	for r := 0; r < readers; r++ {
		go func(s *testSession, seed int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				p := pages[(seed*31+i)%numPages]
				if !m.Acquire(s, p) {
					lostRaces.Add(1)
					continue
				}
				acquired.Add(1)
				if data := p.Data(); len(data) != 1 || data[0] != byte(p.ID()) {
					corrupted.Add(1)
				}
				m.Release(s, p)
			}
		}(sessions[r], r)
	}
	wg.Wait()
	stop.Store(true)
	<-evictorDone

	t.Logf("acquired: %d, lost races: %d, reclaimed: %d, backoffs: %d",
		acquired.Load(), lostRaces.Load(), reclaimed.Load(), backoffs.Load())

	assert.Zero(t, corrupted.Load(), "reader dereferenced a reclaimed page")
	assert.Empty(t, rec.Fatals())
	assert.Positive(t, acquired.Load())
	for _, s := range sessions {
		assert.Zero(t, s.Hazards().Occupied())
	}
}
