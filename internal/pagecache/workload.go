package pagecache

import (
	"context"
	"encoding/binary"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/session"
	"github.com/Borislavv/page-hazard/pkg/storage"
	"github.com/Borislavv/page-hazard/pkg/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
)

// WorkloadStats are cumulative counters of the synthetic readers.
type WorkloadStats struct {
	Reads     int64
	Retries   int64
	Corrupted int64
}

// Workload runs readers that pin random pages, verify their checksum and unpin them, each
// reader bound to its own session.
type Workload struct {
	ctx   context.Context
	cfg   *config.Config
	conn  *session.Connection
	cache *storage.Cache

	reads     atomic.Int64
	retries   atomic.Int64
	corrupted atomic.Int64
}

func NewWorkload(ctx context.Context, cfg *config.Config, conn *session.Connection, cache *storage.Cache) *Workload {
	return &Workload{ctx: ctx, cfg: cfg, conn: conn, cache: cache}
}

// PageContent fills a page with its id and a trailing xxh3 checksum.
func PageContent(id uint64, size int) []byte {
	if size < 16 {
		size = 16
	}
	b := make([]byte, size)
	binary.LittleEndian.PutUint64(b, id)
	for i := 8; i < size-8; i++ {
		b[i] = byte(id) + byte(i)
	}
	binary.LittleEndian.PutUint64(b[size-8:], xxh3.Hash(b[:size-8]))
	return b
}

// VerifyContent reports whether data is an intact page id.
func VerifyContent(id uint64, data []byte) bool {
	if len(data) < 16 || binary.LittleEndian.Uint64(data) != id {
		return false
	}
	n := len(data) - 8
	return binary.LittleEndian.Uint64(data[n:]) == xxh3.Hash(data[:n])
}

// Seed writes workload.pages pages into the backing store.
func (w *Workload) Seed() error {
	pages := w.cfg.Workload.Pages
	if w.cfg.Workload.Readers <= 0 || pages <= 0 {
		return nil
	}
	store := w.cache.Store()
	for id := uint64(1); id <= uint64(pages); id++ {
		if err := store.Write(w.ctx, id, PageContent(id, w.cfg.Cache.PageSize)); err != nil {
			return errors.Wrapf(err, "seed page %d", id)
		}
	}
	log.Info().Msgf("[workload] seeded %d pages", pages)
	return nil
}

func (w *Workload) Stats() WorkloadStats {
	return WorkloadStats{
		Reads:     w.reads.Load(),
		Retries:   w.retries.Load(),
		Corrupted: w.corrupted.Load(),
	}
}

// Run starts the readers; wg is done once every reader closed its session.
func (w *Workload) Run(wg *sync.WaitGroup) {
	if w.cfg.Workload.Readers <= 0 || w.cfg.Workload.Pages <= 0 {
		return
	}
	for i := 0; i < w.cfg.Workload.Readers; i++ {
		s, err := w.conn.Open()
		if err != nil {
			log.Error().Err(err).Int("reader", i).Msg("[workload] failed to open session")
			continue
		}
		wg.Add(1)
		go w.read(wg, s, uint64(i))
	}
	w.runLogger()
}

func (w *Workload) read(wg *sync.WaitGroup, s *session.Session, seq uint64) {
	defer wg.Done()
	defer func() { _ = s.Close() }()

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), seq))
	pages := uint64(w.cfg.Workload.Pages)

	for range utils.NewTicker(w.ctx, w.cfg.Workload.Interval) {
		id := rng.Uint64N(pages) + 1
		p, err := w.cache.Get(s, id)
		if err != nil {
			if errors.Is(err, storage.ErrRetriesExhausted) {
				w.retries.Add(1)
				continue
			}
			log.Error().Err(err).Uint64("session", s.ID()).Msg("[workload] failed to get page")
			continue
		}
		if !VerifyContent(id, p.Data()) {
			w.corrupted.Add(1)
			log.Error().Uint64("page", id).Uint64("session", s.ID()).Msg("[workload] page content is corrupted")
		}
		w.reads.Add(1)
		w.cache.Put(s, p)
	}
}

func (w *Workload) runLogger() {
	go func() {
		var prev WorkloadStats
		for range utils.NewTicker(w.ctx, 5*time.Second) {
			cur := w.Stats()
			reads := cur.Reads - prev.Reads
			if reads <= 0 {
				continue
			}

			logEvent := log.Info()
			if w.cfg.IsProd() {
				logEvent.
					Str("target", "workload").
					Str("reads", strconv.FormatInt(reads, 10)).
					Str("retries", strconv.FormatInt(cur.Retries-prev.Retries, 10)).
					Str("corrupted", strconv.FormatInt(cur.Corrupted, 10))
			}
			logEvent.Msgf("[workload][5s] %d reads, %d retries, resident %d pages",
				reads, cur.Retries-prev.Retries, w.cache.Resident())
			prev = cur
		}
	}()
}
