package usecase

import (
	"CoinSentry/internal/domain/models"
	"CoinSentry/internal/pool"
)

// StatusProjector derives EngineStatus on demand from live components.
// Nothing here is stored; every read reflects the current pool.
type StatusProjector struct {
	tracker *pool.Tracker
	runner  *CycleRunner
	signals *SignalGenerator
}

func NewStatusProjector(tracker *pool.Tracker, runner *CycleRunner, signals *SignalGenerator) *StatusProjector {
	return &StatusProjector{tracker: tracker, runner: runner, signals: signals}
}

// Status assembles the current engine snapshot.
func (p *StatusProjector) Status() models.EngineStatus {
	st := models.EngineStatus{
		TotalCoinCount: p.tracker.Len(),
	}
	if p.runner != nil {
		st.IsRunning = p.runner.IsRunning()
		st.StartTime = p.runner.StartTime()
		st.LastUpdate = p.runner.LastRun()
	}
	if p.signals != nil {
		st.ActiveSignalCount = p.signals.ActiveCount()
	}
	return st
}
