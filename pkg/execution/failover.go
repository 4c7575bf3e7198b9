package execution

import (
	"log/slog"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
)

// Failover prefers a primary evaluator and demotes to a fallback after a
// run of consecutive failures. With sticky demotion the fallback stays
// active for the rest of the run, otherwise the primary is retried on
// the next evaluation.
type Failover struct {
	primary   Evaluator
	fallback  Evaluator
	threshold int
	sticky    bool

	failures int
	demoted  bool
}

func NewFailover(primary, fallback Evaluator, threshold int, sticky bool) *Failover {
	if threshold < 1 {
		threshold = 1
	}
	return &Failover{
		primary:   primary,
		fallback:  fallback,
		threshold: threshold,
		sticky:    sticky,
	}
}

func (f *Failover) Evaluate(order common.Order, quote Quote) (Decision, error) {
	if f.demoted && f.sticky {
		return f.fallback.Evaluate(order, quote)
	}

	d, err := f.primary.Evaluate(order, quote)
	if err == nil {
		f.failures = 0
		f.demoted = false
		return d, nil
	}

	f.failures++
	if f.failures >= f.threshold {
		if !f.demoted {
			slog.Warn("demoting to fallback evaluator",
				"component", "execution.failover",
				"consecutive_failures", f.failures,
				"sticky", f.sticky)
		}
		f.demoted = true
	}
	return f.fallback.Evaluate(order, quote)
}

func (f *Failover) Latency(intent Intent) time.Duration {
	if f.demoted && f.sticky {
		return f.fallback.Latency(intent)
	}
	return f.primary.Latency(intent)
}

func (f *Failover) CancelRace() bool {
	if f.demoted && f.sticky {
		return f.fallback.CancelRace()
	}
	return f.primary.CancelRace()
}
