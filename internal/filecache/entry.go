package filecache

import (
	"encoding/json"
	"time"
)

// DefaultTTL applies when Set is called with a zero ttl and when a
// stored record carries no ttl_hours field.
const DefaultTTL = 24 * time.Hour

// record is the on-disk layout of one entry.
type record struct {
	Timestamp time.Time       `json:"timestamp"`
	TTLHours  *float64        `json:"ttl_hours,omitempty"`
	Data      json.RawMessage `json:"data"`
}

func newRecord(now time.Time, ttl time.Duration, value any) (*record, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	hours := ttl.Hours()
	return &record{Timestamp: now, TTLHours: &hours, Data: data}, nil
}

func (r *record) ttl() time.Duration {
	if r.TTLHours == nil {
		return DefaultTTL
	}
	return time.Duration(*r.TTLHours * float64(time.Hour))
}

func (r *record) expired(now time.Time) bool {
	return now.Sub(r.Timestamp) > r.ttl()
}
