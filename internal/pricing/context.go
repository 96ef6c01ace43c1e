package pricing

import (
	"time"

	"github.com/altis-air/altis-retail-engine/internal/domain"
)

// Context is the input to Engine.Price, spec §4.2.
type Context struct {
	Timestamp          time.Time
	DaysUntilDeparture int
	Utilization        float64 // in [0,1]; undefined (0) when capacity=0
	CapacityIsZero     bool
	IsBundled          bool
	UserSegment        string
	RuleSet            *domain.RuleSet
}
