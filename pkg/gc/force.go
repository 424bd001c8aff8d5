package gc

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Run periodically forces a GC pass and returns freed memory to the OS. Reclaimed page
// buffers go back to a sync.Pool, so a steady cache keeps its heap high between organic
// GC cycles; this bounds RSS after large eviction waves. Returns immediately when disabled.
func Run(ctx context.Context, cfg config.ForceGC) {
	if !cfg.Enabled {
		return
	}

	go func() {
		gcTicker := time.NewTicker(cfg.GCInterval)
		defer gcTicker.Stop()

		freeTicker := time.NewTicker(cfg.FreeOSMemInterval)
		defer freeTicker.Stop()

		log.Info().Msgf("[force-gc] running with gcInterval=%s, freeOsMemInterval=%s",
			cfg.GCInterval, cfg.FreeOSMemInterval)

		var lastAlloc uint64
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("[force-gc] stopped")
				return
			case <-gcTicker.C:
				runtime.GC()
				mem := readMemStats()
				log.Debug().Msgf("[force-gc] forced GC pass (pause: %s, heap: %s)",
					lastPause(&mem), utils.FmtMem(int64(mem.HeapAlloc)))
				lastAlloc = mem.Alloc
			case <-freeTicker.C:
				debug.FreeOSMemory()
				mem := readMemStats()
				log.Debug().Msgf("[force-gc] returned memory to OS (alloc was %s, now %s)",
					utils.FmtMem(int64(lastAlloc)), utils.FmtMem(int64(mem.Alloc)))
				lastAlloc = mem.Alloc
			}
		}
	}()
}

func readMemStats() (mem runtime.MemStats) {
	runtime.ReadMemStats(&mem)
	return mem
}

// lastPause returns the most recent GC pause.
func lastPause(mem *runtime.MemStats) time.Duration {
	if mem.NumGC == 0 {
		return 0
	}
	return time.Duration(mem.PauseNs[(mem.NumGC+255)%256])
}
