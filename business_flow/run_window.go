package businessflow

import (
	"time"

	"github.com/amirphl/pn-backup/utils"
)

// RunWindow is the half-open purchase window [Start, End) of one run
type RunWindow struct {
	Start time.Time
	End   time.Time
}

// ComputeRunWindow starts at 00:00 UTC of now's UTC day and ends lookback before now
func ComputeRunWindow(now time.Time, lookback time.Duration) RunWindow {
	now = now.UTC()
	return RunWindow{
		Start: utils.StartOfUTCDay(now),
		End:   now.Add(-lookback),
	}
}

// Inverted reports a run started within lookback of midnight; such a window matches nothing
func (w RunWindow) Inverted() bool {
	return w.End.Before(w.Start)
}
