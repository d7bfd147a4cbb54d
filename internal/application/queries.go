package application

import (
	"time"

	"github.com/bnema/schoolsync/internal/domain"
)

type Status struct {
	Account       domain.Account
	Active        bool
	LastRefreshed map[domain.RefreshDomain]time.Time
}

// LastRefreshedAt returns the most recent refresh across every domain.
func (s Status) LastRefreshedAt() time.Time {
	var latest time.Time
	for _, at := range s.LastRefreshed {
		if at.After(latest) {
			latest = at
		}
	}
	return latest
}
