package domain

import "fmt"

// RefreshOutcome is the result a background task hands back to the host
// scheduler; the host derives its retry cadence from it.
type RefreshOutcome int

const (
	OutcomeNoData RefreshOutcome = iota + 1
	OutcomeNewData
	OutcomeFailed
)

func (o RefreshOutcome) String() string {
	switch o {
	case OutcomeNoData:
		return "no_data"
	case OutcomeNewData:
		return "new_data"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func ParseRefreshOutcome(raw string) (RefreshOutcome, error) {
	for _, outcome := range []RefreshOutcome{OutcomeNoData, OutcomeNewData, OutcomeFailed} {
		if outcome.String() == raw {
			return outcome, nil
		}
	}
	return 0, fmt.Errorf("unknown refresh outcome %q", raw)
}
