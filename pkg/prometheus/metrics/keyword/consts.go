package keyword

var (
	AcquireOk          = `page_hazard_acquire_total{result="ok"}`
	AcquireTableFull   = `page_hazard_acquire_total{result="table_full"}`
	AcquireLostRace    = `page_hazard_acquire_total{result="lost_race"}`
	Released           = "page_hazard_release_total"
	Residual           = "page_hazard_residual_total"
	UseAfterFreeHazard = "page_hazard_use_after_free_total"
	Evicted            = "page_hazard_evicted_pages_total"
	FreedBytes         = "page_hazard_evicted_bytes_total"
	EvictionBackoff    = "page_hazard_eviction_backoff_total"
	Writebacks         = "page_hazard_writeback_total"
	VictimHits         = "page_hazard_victim_hits_total"
	ResidentPages      = "page_hazard_resident_pages"
	OpenSessions       = "page_hazard_open_sessions"
)
