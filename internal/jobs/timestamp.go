package jobs

import (
	"fmt"
	"strconv"
	"time"
)

// Wire layouts the service has been observed to emit, tried in order.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00", // fractional seconds, colon offset
	"2006-01-02T15:04:05Z07:00",           // whole seconds, colon offset
	"2006-01-02T15:04:05.000000Z0700",     // fixed six-digit microseconds
}

// encodeLayout is the fractional-second form used for every emitted date.
const encodeLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is a time.Time that round-trips through the service's JSON date
// representations.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps a time.Time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// UnmarshalJSON decodes any of the supported layouts.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	value, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp must be a JSON string: %w", err)
	}
	parsed, err := ParseTimestamp(value)
	if err != nil {
		return err
	}
	t.Time = parsed.Time
	return nil
}

// MarshalJSON always emits the fractional-second UTC-offset form.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.Time.Format(encodeLayout))), nil
}

// ParseTimestamp decodes value against each supported layout in order.
func ParseTimestamp(value string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return Timestamp{Time: parsed}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("timestamp %q matches no supported format", value)
}

// Equal compares the wrapped instants.
func (t Timestamp) Equal(other Timestamp) bool {
	return t.Time.Equal(other.Time)
}
