package jobs

import "sort"

// EventType discriminates pushed stream events.
type EventType string

const (
	EventNewFile   EventType = "new_file"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventSkipped   EventType = "skipped"
)

// Event is one decoded push-channel message. Job is set for new_file,
// completed, and failed; JobID and Progress cover the id-only kinds.
type Event struct {
	Type     EventType
	Job      *Job
	JobID    string
	Progress float64
}

// Apply merges one event into the job list and returns the updated list.
// Events referencing unknown identifiers are no-ops except for the kinds that
// carry a full job record, which insert it. Re-applying the same event is
// safe: replacements are idempotent and a new_file for the job already at the
// front leaves the order unchanged.
func Apply(list []Job, event Event) []Job {
	switch event.Type {
	case EventNewFile:
		if event.Job == nil {
			return list
		}
		return upsert(list, *event.Job, true)

	case EventCompleted, EventFailed:
		if event.Job == nil {
			return list
		}
		return upsert(list, *event.Job, false)

	case EventProgress:
		index := indexOf(list, event.JobID)
		if index < 0 {
			return list
		}
		list[index].Progress = event.Progress
		// A progress report is evidence that execution has begun.
		if list[index].Status == StatusPending || list[index].Status == StatusConfirmed {
			list[index].Status = StatusProcessing
		}
		return list

	case EventSkipped:
		index := indexOf(list, event.JobID)
		if index < 0 {
			return list
		}
		list[index].Status = StatusSkipped
		return list
	}
	return list
}

// Upsert replaces the job matching by identifier in place, or inserts it at
// the front when absent. This is the merge primitive shared by command
// results so poll, push, and commands cannot diverge.
func Upsert(list []Job, job Job) []Job {
	if index := indexOf(list, job.ID); index >= 0 {
		list[index] = job
		return list
	}
	return append([]Job{job}, list...)
}

// SortByCreatedDesc orders a poll response newest-first for presentation.
func SortByCreatedDesc(list []Job) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt.Time)
	})
}

func upsert(list []Job, job Job, insertAtTop bool) []Job {
	index := indexOf(list, job.ID)
	if index >= 0 {
		list[index] = job
		if insertAtTop && index > 0 {
			updated := list[index]
			copy(list[1:index+1], list[:index])
			list[0] = updated
		}
		return list
	}
	if insertAtTop {
		return append([]Job{job}, list...)
	}
	return append(list, job)
}

func indexOf(list []Job, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
