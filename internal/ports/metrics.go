package ports

import (
	"time"

	"github.com/bnema/schoolsync/internal/domain"
)

type CycleMetrics interface {
	ObserveCycle(outcome domain.RefreshOutcome, elapsed time.Duration)
	ObserveRefresh(refreshDomain domain.RefreshDomain, elapsed time.Duration, err error)
}

type NopMetrics struct{}

func (NopMetrics) ObserveCycle(domain.RefreshOutcome, time.Duration) {}

func (NopMetrics) ObserveRefresh(domain.RefreshDomain, time.Duration, error) {}
