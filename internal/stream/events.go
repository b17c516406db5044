package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"vertdctl/internal/jobs"
)

// ErrInvalidURL reports an endpoint that cannot be mapped to a stream URL.
var ErrInvalidURL = errors.New("stream: invalid endpoint URL")

// InvalidPayloadError reports an envelope missing a field its type requires.
type InvalidPayloadError struct {
	Type string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("stream: event %q missing required fields", e.Type)
}

// UnknownEventTypeError reports an envelope with an unrecognized discriminant.
type UnknownEventTypeError struct {
	Type string
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("stream: unknown event type %q", e.Type)
}

type envelope struct {
	Type     string    `json:"type"`
	Job      *jobs.Job `json:"job"`
	JobID    string    `json:"job_id"`
	Progress *float64  `json:"progress"`
}

// DecodeEvent decodes one frame payload into a job event.
func DecodeEvent(data []byte) (jobs.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return jobs.Event{}, fmt.Errorf("stream: decode envelope: %w", err)
	}

	switch eventType := jobs.EventType(env.Type); eventType {
	case jobs.EventNewFile, jobs.EventCompleted, jobs.EventFailed:
		if env.Job == nil {
			return jobs.Event{}, &InvalidPayloadError{Type: env.Type}
		}
		return jobs.Event{Type: eventType, Job: env.Job}, nil

	case jobs.EventProgress:
		if env.JobID == "" || env.Progress == nil {
			return jobs.Event{}, &InvalidPayloadError{Type: env.Type}
		}
		return jobs.Event{Type: eventType, JobID: env.JobID, Progress: *env.Progress}, nil

	case jobs.EventSkipped:
		if env.JobID == "" {
			return jobs.Event{}, &InvalidPayloadError{Type: env.Type}
		}
		return jobs.Event{Type: eventType, JobID: env.JobID}, nil

	default:
		return jobs.Event{}, &UnknownEventTypeError{Type: env.Type}
	}
}
