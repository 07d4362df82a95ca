package domain

import "time"

// Setting is a per-user preference stored as raw JSON.
type Setting struct {
	Owner     string
	Key       string
	Value     string
	UpdatedAt time.Time
}
