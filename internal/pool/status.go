package pool

import (
	"time"

	"CoinSentry/internal/domain/models"
)

// nextStatus computes the status a record moves to on one cycle advance.
// It is the only place lifecycle transitions are decided; every case is
// covered so a record can never fall through unchanged by accident.
//
// passed is the verdict of the most recently completed cycle, cycles the
// count after the increment for this advance, sinceLastPass the elapsed
// time since the record last passed filters.
func nextStatus(cur models.CoinStatus, passed bool, cycles int, sinceLastPass, warningGrace time.Duration) models.CoinStatus {
	switch cur {
	case models.StatusNew:
		if passed && cycles >= 2 {
			return models.StatusStable
		}
		if !passed {
			return models.StatusWarning
		}
		return models.StatusNew
	case models.StatusStable:
		if !passed {
			return models.StatusWarning
		}
		return models.StatusStable
	case models.StatusWarning:
		if passed {
			return models.StatusStable
		}
		if sinceLastPass > warningGrace {
			return models.StatusRemoving
		}
		return models.StatusWarning
	case models.StatusRemoving:
		// terminal, no recovery path
		return models.StatusRemoving
	default:
		return cur
	}
}
