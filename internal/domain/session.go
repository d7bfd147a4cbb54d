package domain

import "time"

// Session is the process-wide active account context. Fetches that are not
// given an account explicitly are scoped to ActiveAccountID.
type Session struct {
	ActiveAccountID AccountID
	SwitchedAt      time.Time
}
