package dto

import "time"

// RefreshConfigRequest reconfigures the auto-refresh trigger at runtime.
type RefreshConfigRequest struct {
	IntervalMillis *int64 `json:"intervalMillis,omitempty"`
	Enabled        *bool  `json:"enabled,omitempty"`
}

// Interval converts the requested period to a duration.
func (r RefreshConfigRequest) Interval() time.Duration {
	if r.IntervalMillis == nil {
		return 0
	}
	return time.Duration(*r.IntervalMillis) * time.Millisecond
}
