package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vertdctl/internal/jobs"
)

type fakeAPI struct {
	mu        sync.Mutex
	list      []jobs.Job
	listErr   error
	listCalls int

	actionJob   jobs.Job
	actionErr   error
	actionGate  chan struct{}
	lastAction  string
	actionCalls int
}

func (f *fakeAPI) ListJobs(ctx context.Context) ([]jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]jobs.Job(nil), f.list...), f.listErr
}

func (f *fakeAPI) action(name string) (jobs.Job, error) {
	f.mu.Lock()
	gate := f.actionGate
	f.lastAction = name
	f.actionCalls++
	job, err := f.actionJob, f.actionErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return job, err
}

func (f *fakeAPI) Convert(ctx context.Context, id string) (jobs.Job, error) {
	return f.action("convert " + id)
}

func (f *fakeAPI) Skip(ctx context.Context, id string) (jobs.Job, error) {
	return f.action("skip " + id)
}

type fakeStream struct {
	mu          sync.Mutex
	subs        map[int]chan jobs.Event
	nextSub     int
	connects    int
	disconnects int
	connected   bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{subs: make(map[int]chan jobs.Event)}
}

func (f *fakeStream) Connect(endpoint, apiKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.connected = true
}

func (f *fakeStream) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
}

func (f *fakeStream) Subscribe() (<-chan jobs.Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	ch := make(chan jobs.Event, 16)
	f.subs[id] = ch
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if existing, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(existing)
		}
	}
}

func (f *fakeStream) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeStream) Emit(event jobs.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		ch <- event
	}
}

func (f *fakeStream) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects
}

func newTestWatcher(api *fakeAPI, stream *fakeStream) *Watcher {
	return New(stream,
		WithPollInterval(time.Hour), // only the immediate fetch fires in tests
		WithAPIFactory(func(endpoint, apiKey string) (APIClient, error) {
			return api, nil
		}))
}

func waitFor(t *testing.T, w *Watcher, cond func(State) bool) State {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		state := w.Snapshot()
		if cond(state) {
			return state
		}
		select {
		case <-deadline:
			t.Fatalf("condition never held; last state: %+v", state)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func pendingJob(id string) jobs.Job {
	return jobs.Job{
		ID:        id,
		Status:    jobs.StatusPending,
		File:      jobs.FileInfo{Name: id + ".mkv", SizeBytes: 1},
		CreatedAt: jobs.NewTimestamp(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func TestStartValidationBlocksSession(t *testing.T) {
	stream := newFakeStream()
	w := newTestWatcher(&fakeAPI{}, stream)

	cases := []struct{ endpoint, apiKey string }{
		{"", "key"},
		{"not a url", "key"},
		{"https://vertd.example", ""},
	}
	for _, tc := range cases {
		if err := w.Start(tc.endpoint, tc.apiKey); err == nil {
			t.Fatalf("start(%q, %q) succeeded", tc.endpoint, tc.apiKey)
		}
	}
	if state := w.Snapshot(); state.Err == "" {
		t.Fatal("validation failure did not set error state")
	}
	if connects, _ := stream.counts(); connects != 0 {
		t.Fatalf("stream connected despite validation failure: %d", connects)
	}
}

func TestPollThenProgressEventConverges(t *testing.T) {
	apiClient := &fakeAPI{list: []jobs.Job{pendingJob("job1")}}
	stream := newFakeStream()
	w := newTestWatcher(apiClient, stream)
	defer w.Stop()

	if err := w.Start("https://vertd.example", "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, w, func(s State) bool { return len(s.Jobs) == 1 })

	stream.Emit(jobs.Event{Type: jobs.EventProgress, JobID: "job1", Progress: 34.2})

	state := waitFor(t, w, func(s State) bool {
		return len(s.Jobs) == 1 && s.Jobs[0].Progress == 34.2
	})
	if state.Jobs[0].Status != jobs.StatusProcessing {
		t.Fatalf("expected processing status, got %s", state.Jobs[0].Status)
	}
	if state.Jobs[0].ID != "job1" {
		t.Fatalf("unexpected job: %+v", state.Jobs[0])
	}
}

func TestStartIsIdempotentForSameParameters(t *testing.T) {
	stream := newFakeStream()
	w := newTestWatcher(&fakeAPI{}, stream)
	defer w.Stop()

	if err := w.Start("https://vertd.example", "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start("https://vertd.example", "key"); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if connects, _ := stream.counts(); connects != 1 {
		t.Fatalf("expected one connect, got %d", connects)
	}
}

func TestStartWithNewParametersRestartsSession(t *testing.T) {
	stream := newFakeStream()
	w := newTestWatcher(&fakeAPI{}, stream)
	defer w.Stop()

	if err := w.Start("https://one.example", "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start("https://two.example", "key"); err != nil {
		t.Fatalf("restart: %v", err)
	}

	connects, disconnects := stream.counts()
	if connects != 2 || disconnects != 1 {
		t.Fatalf("expected restart (2 connects, 1 disconnect), got %d/%d", connects, disconnects)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	stream := newFakeStream()
	w := newTestWatcher(&fakeAPI{}, stream)

	if err := w.Start("https://vertd.example", "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	w.Stop()
	w.Stop()

	if _, disconnects := stream.counts(); disconnects != 1 {
		t.Fatalf("expected one disconnect, got %d", disconnects)
	}
}

func TestConvertUpsertsServerRecord(t *testing.T) {
	apiClient := &fakeAPI{}
	confirmed := pendingJob("job1")
	confirmed.Status = jobs.StatusConfirmed
	apiClient.actionJob = confirmed

	stream := newFakeStream()
	w := newTestWatcher(apiClient, stream)
	defer w.Stop()

	if err := w.Start("https://vertd.example", "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Convert(context.Background(), "job1"); err != nil {
		t.Fatalf("convert: %v", err)
	}

	state := waitFor(t, w, func(s State) bool { return len(s.Jobs) == 1 })
	if state.Jobs[0].Status != jobs.StatusConfirmed {
		t.Fatalf("expected confirmed job, got %+v", state.Jobs[0])
	}
}

func TestCommandFailureLeavesCollectionUntouched(t *testing.T) {
	apiClient := &fakeAPI{list: []jobs.Job{pendingJob("job1")}}
	apiClient.actionErr = errors.New("job not in pending state")

	stream := newFakeStream()
	w := newTestWatcher(apiClient, stream)
	defer w.Stop()

	if err := w.Start("https://vertd.example", "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, w, func(s State) bool { return len(s.Jobs) == 1 })

	if err := w.Skip(context.Background(), "job1"); err == nil {
		t.Fatal("expected skip failure")
	}

	state := waitFor(t, w, func(s State) bool { return s.Err != "" })
	if state.Jobs[0].Status != jobs.StatusPending {
		t.Fatalf("collection mutated on failure: %+v", state.Jobs[0])
	}
}

func TestCommandsRequireSession(t *testing.T) {
	w := newTestWatcher(&fakeAPI{}, newFakeStream())
	if err := w.Convert(context.Background(), "job1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := w.RefreshNow(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRefreshNowFetchesImmediately(t *testing.T) {
	apiClient := &fakeAPI{}
	stream := newFakeStream()
	w := newTestWatcher(apiClient, stream)
	defer w.Stop()

	if err := w.Start("https://vertd.example", "key"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, w, func(s State) bool {
		apiClient.mu.Lock()
		defer apiClient.mu.Unlock()
		return apiClient.listCalls >= 1
	})

	if err := w.RefreshNow(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	apiClient.mu.Lock()
	calls := apiClient.listCalls
	apiClient.mu.Unlock()
	if calls < 2 {
		t.Fatalf("expected an extra fetch, got %d calls", calls)
	}
}

func TestStaleCommandResultIsDiscardedAfterStop(t *testing.T) {
	apiClient := &fakeAPI{actionGate: make(chan struct{})}
	apiClient.actionJob = pendingJob("job1")

	stream := newFakeStream()
	w := newTestWatcher(apiClient, stream)

	if err := w.Start("https://vertd.example", "key"); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Convert(context.Background(), "job1") }()

	waitFor(t, w, func(State) bool {
		apiClient.mu.Lock()
		defer apiClient.mu.Unlock()
		return apiClient.actionCalls == 1
	})

	w.Stop()
	close(apiClient.actionGate)
	<-done

	time.Sleep(20 * time.Millisecond)
	if state := w.Snapshot(); len(state.Jobs) != 0 {
		t.Fatalf("stale command result applied after stop: %+v", state.Jobs)
	}
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	apiClient := &fakeAPI{list: []jobs.Job{pendingJob("job1")}}
	stream := newFakeStream()
	w := newTestWatcher(apiClient, stream)
	defer w.Stop()

	states, unsubscribe := w.Subscribe()
	defer unsubscribe()

	if err := w.Start("https://vertd.example", "key"); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case state := <-states:
			if len(state.Jobs) == 1 && state.Jobs[0].ID == "job1" {
				return
			}
		case <-deadline:
			t.Fatal("never observed job via subscription")
		}
	}
}
