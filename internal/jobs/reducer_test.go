package jobs

import (
	"testing"
	"time"
)

func makeJob(id string, status Status) Job {
	return Job{
		ID:        id,
		Status:    status,
		File:      FileInfo{Name: id + ".mkv", SizeBytes: 1024},
		CreatedAt: NewTimestamp(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func ids(list []Job) []string {
	out := make([]string, len(list))
	for i, job := range list {
		out[i] = job.ID
	}
	return out
}

func TestApplyProgressUnknownJobIsNoop(t *testing.T) {
	list := []Job{makeJob("job1", StatusPending)}
	updated := Apply(list, Event{Type: EventProgress, JobID: "missing", Progress: 50})
	if len(updated) != 1 || updated[0].ID != "job1" || updated[0].Progress != 0 {
		t.Fatalf("collection changed for unknown job: %+v", updated)
	}
}

func TestApplyProgressAdvancesPreExecutionStatuses(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusConfirmed} {
		list := []Job{makeJob("job1", status)}
		updated := Apply(list, Event{Type: EventProgress, JobID: "job1", Progress: 12.5})
		if updated[0].Status != StatusProcessing {
			t.Fatalf("status %s not advanced to processing, got %s", status, updated[0].Status)
		}
		if updated[0].Progress != 12.5 {
			t.Fatalf("progress not applied: %v", updated[0].Progress)
		}
	}
}

func TestApplyProgressKeepsProcessingStatus(t *testing.T) {
	list := []Job{makeJob("job1", StatusProcessing)}
	updated := Apply(list, Event{Type: EventProgress, JobID: "job1", Progress: 80})
	if updated[0].Status != StatusProcessing {
		t.Fatalf("status changed: %s", updated[0].Status)
	}
	if updated[0].Progress != 80 {
		t.Fatalf("progress not applied: %v", updated[0].Progress)
	}
}

func TestApplySkippedOverridesAnyStatus(t *testing.T) {
	for _, status := range allStatuses {
		list := []Job{makeJob("job1", status)}
		updated := Apply(list, Event{Type: EventSkipped, JobID: "job1"})
		if updated[0].Status != StatusSkipped {
			t.Fatalf("status %s not overridden, got %s", status, updated[0].Status)
		}
	}
}

func TestApplySkippedUnknownJobIsNoop(t *testing.T) {
	list := []Job{makeJob("job1", StatusPending)}
	updated := Apply(list, Event{Type: EventSkipped, JobID: "missing"})
	if updated[0].Status != StatusPending {
		t.Fatalf("status changed: %s", updated[0].Status)
	}
}

func TestApplyNewFileMovesExistingJobToFront(t *testing.T) {
	list := []Job{makeJob("a", StatusPending), makeJob("b", StatusPending), makeJob("c", StatusPending)}
	replacement := makeJob("b", StatusConfirmed)
	updated := Apply(list, Event{Type: EventNewFile, Job: &replacement})

	got := ids(updated)
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v want %v", got, want)
		}
	}
	if updated[0].Status != StatusConfirmed {
		t.Fatalf("fields not replaced: %+v", updated[0])
	}
}

func TestApplyNewFileInsertsAtFront(t *testing.T) {
	list := []Job{makeJob("a", StatusPending), makeJob("b", StatusPending)}
	fresh := makeJob("c", StatusPending)
	updated := Apply(list, Event{Type: EventNewFile, Job: &fresh})

	got := ids(updated)
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v want %v", got, want)
		}
	}
}

func TestApplyNewFileForFrontJobIsStable(t *testing.T) {
	list := []Job{makeJob("a", StatusPending), makeJob("b", StatusPending)}
	front := makeJob("a", StatusPending)
	updated := Apply(list, Event{Type: EventNewFile, Job: &front})
	got := ids(updated)
	if got[0] != "a" || got[1] != "b" {
		t.Fatalf("order changed: %v", got)
	}
}

func TestApplyCompletedReplacesInPlace(t *testing.T) {
	list := []Job{makeJob("a", StatusPending), makeJob("b", StatusProcessing)}
	done := makeJob("b", StatusCompleted)
	done.Progress = 100
	updated := Apply(list, Event{Type: EventCompleted, Job: &done})

	if updated[1].ID != "b" || updated[1].Status != StatusCompleted {
		t.Fatalf("completed job not replaced in place: %+v", updated)
	}
}

func TestApplyFailedAppendsUnknownJob(t *testing.T) {
	list := []Job{makeJob("a", StatusPending)}
	failed := makeJob("z", StatusFailed)
	updated := Apply(list, Event{Type: EventFailed, Job: &failed})

	if len(updated) != 2 || updated[1].ID != "z" {
		t.Fatalf("failed job not appended: %v", ids(updated))
	}
}

func TestUpsertReplacesWithoutReordering(t *testing.T) {
	list := []Job{makeJob("a", StatusPending), makeJob("b", StatusPending)}
	replacement := makeJob("b", StatusSkipped)
	updated := Upsert(list, replacement)

	if updated[1].ID != "b" || updated[1].Status != StatusSkipped {
		t.Fatalf("upsert did not replace in place: %v", ids(updated))
	}
}

func TestUpsertInsertsAtFront(t *testing.T) {
	list := []Job{makeJob("a", StatusPending)}
	updated := Upsert(list, makeJob("b", StatusPending))

	if len(updated) != 2 || updated[0].ID != "b" {
		t.Fatalf("upsert did not insert at front: %v", ids(updated))
	}
}

func TestSortByCreatedDesc(t *testing.T) {
	older := makeJob("old", StatusPending)
	older.CreatedAt = NewTimestamp(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := makeJob("new", StatusPending)
	newer.CreatedAt = NewTimestamp(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	list := []Job{older, newer}
	SortByCreatedDesc(list)
	if list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("unexpected order: %v", ids(list))
	}
}
