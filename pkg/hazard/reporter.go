package hazard

import (
	"github.com/rs/zerolog/log"
)

// Reporter is the error sink of the hazard protocol. Error receives recoverable defects and
// backpressure, the operation then returns normally. Fatal receives broken invariants and is
// expected not to return; if it does, the operation returns without touching the table.
type Reporter interface {
	Error(sessionID uint64, err error)
	Fatal(sessionID uint64, err error)
}

// LogReporter reports through the global zerolog logger. Fatal exits the process.
type LogReporter struct{}

func NewLogReporter() LogReporter { return LogReporter{} }

func (LogReporter) Error(sessionID uint64, err error) {
	log.Error().Err(err).Uint64("session", sessionID).Msg("[hazard] protocol error")
}

func (LogReporter) Fatal(sessionID uint64, err error) {
	log.Fatal().Err(err).Uint64("session", sessionID).Msg("[hazard] invariant violated, terminating")
}
