package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"vertdctl/internal/api"
	"vertdctl/internal/jobs"
)

const defaultPollInterval = 5 * time.Second

// APIClient is the REST surface the watcher drives.
type APIClient interface {
	ListJobs(ctx context.Context) ([]jobs.Job, error)
	Convert(ctx context.Context, id string) (jobs.Job, error)
	Skip(ctx context.Context, id string) (jobs.Job, error)
}

// StreamClient is the push-channel surface the watcher subscribes to.
type StreamClient interface {
	Connect(endpoint, apiKey string)
	Disconnect()
	Subscribe() (<-chan jobs.Event, func())
	Connected() bool
}

// State is an observable snapshot of the watcher for presentation layers.
type State struct {
	Jobs      []jobs.Job
	Loading   bool
	Err       string
	Connected bool
}

// ErrNoSession is returned by commands issued while no session is running.
var ErrNoSession = errors.New("watcher: no active session")

type applyFunc func(*State)

type session struct {
	token       uint64
	endpoint    string
	apiKey      string
	api         APIClient
	ctx         context.Context
	cancel      context.CancelFunc
	applyCh     chan applyFunc
	unsubscribe func()
}

// Watcher reconciles the poll and push channels into one job collection.
type Watcher struct {
	stream       StreamClient
	newAPIClient func(endpoint, apiKey string) (APIClient, error)
	pollInterval time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	session   *session
	nextToken uint64
	state     State
	subs      map[uint64]chan State
	nextSub   uint64
}

// Option configures the watcher.
type Option func(*Watcher)

// WithPollInterval overrides the poll cadence.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Watcher) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithAPIFactory overrides REST client construction.
func WithAPIFactory(factory func(endpoint, apiKey string) (APIClient, error)) Option {
	return func(w *Watcher) {
		if factory != nil {
			w.newAPIClient = factory
		}
	}
}

// New constructs a watcher over the given stream client.
func New(stream StreamClient, opts ...Option) *Watcher {
	watcher := &Watcher{
		stream: stream,
		newAPIClient: func(endpoint, apiKey string) (APIClient, error) {
			return api.New(endpoint, apiKey)
		},
		pollInterval: defaultPollInterval,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:         make(map[uint64]chan State),
	}
	for _, opt := range opts {
		opt(watcher)
	}
	return watcher
}

// Start opens a session for the endpoint and credential. Starting the same
// pair again is a no-op; different parameters stop the prior session first.
// Validation failures surface in the state's Err field and block the start.
func (w *Watcher) Start(endpoint, apiKey string) error {
	endpoint = strings.TrimSpace(endpoint)
	apiKey = strings.TrimSpace(apiKey)
	if err := validateSession(endpoint, apiKey); err != nil {
		w.setError(err.Error())
		return err
	}

	w.mu.Lock()
	if s := w.session; s != nil && s.endpoint == endpoint && s.apiKey == apiKey {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	w.Stop()

	apiClient, err := w.newAPIClient(endpoint, apiKey)
	if err != nil {
		w.setError(err.Error())
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe := w.stream.Subscribe()

	w.mu.Lock()
	w.nextToken++
	s := &session{
		token:       w.nextToken,
		endpoint:    endpoint,
		apiKey:      apiKey,
		api:         apiClient,
		ctx:         ctx,
		cancel:      cancel,
		applyCh:     make(chan applyFunc, 64),
		unsubscribe: unsubscribe,
	}
	w.session = s
	w.mu.Unlock()

	go w.applyLoop(s)
	go w.eventLoop(s, events)
	w.stream.Connect(endpoint, apiKey)
	go w.pollLoop(s)

	w.logger.Info("watch session started", slog.String("endpoint", endpoint))
	return nil
}

// Stop tears the session down: poll loop, event subscription, and stream
// connection. Safe to call when already stopped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	s := w.session
	w.session = nil
	w.mu.Unlock()
	if s == nil {
		return
	}

	s.cancel()
	s.unsubscribe()
	w.stream.Disconnect()
	w.logger.Info("watch session stopped", slog.String("endpoint", s.endpoint))
}

// Convert approves a job and merges the server's record into the collection.
// Failures surface in Err without touching the collection.
func (w *Watcher) Convert(ctx context.Context, id string) error {
	return w.command(ctx, id, func(s *session) (jobs.Job, error) {
		return s.api.Convert(ctx, id)
	})
}

// Skip marks a job skipped and merges the server's record.
func (w *Watcher) Skip(ctx context.Context, id string) error {
	return w.command(ctx, id, func(s *session) (jobs.Job, error) {
		return s.api.Skip(ctx, id)
	})
}

// RefreshNow forces one poll fetch outside the regular interval.
func (w *Watcher) RefreshNow(ctx context.Context) error {
	w.mu.Lock()
	s := w.session
	w.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}
	return w.fetch(ctx, s)
}

// Snapshot returns a copy of the observable state.
func (w *Watcher) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneState(w.state)
}

// Subscribe registers for state snapshots. The channel coalesces: a slow
// consumer sees the latest state, not every intermediate one. The returned
// func unsubscribes.
func (w *Watcher) Subscribe() (<-chan State, func()) {
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	ch := make(chan State, 1)
	w.subs[id] = ch
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		if existing, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(existing)
		}
		w.mu.Unlock()
	}
	return ch, cancel
}

func (w *Watcher) command(ctx context.Context, id string, call func(*session) (jobs.Job, error)) error {
	w.mu.Lock()
	s := w.session
	w.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}

	job, err := call(s)
	if err != nil {
		w.enqueue(s, func(st *State) { st.Err = err.Error() })
		return err
	}
	w.enqueue(s, func(st *State) {
		st.Jobs = jobs.Upsert(st.Jobs, job)
		st.Err = ""
	})
	return nil
}

// applyLoop is the single serialized context: every collection mutation for
// this session runs here, in arrival order. Closures enqueued by a superseded
// session die with the token check.
func (w *Watcher) applyLoop(s *session) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.applyCh:
			w.mu.Lock()
			if w.session == nil || w.session.token != s.token {
				w.mu.Unlock()
				return
			}
			fn(&w.state)
			w.state.Connected = w.stream.Connected()
			snapshot := cloneState(w.state)
			w.mu.Unlock()
			w.notify(snapshot)
		}
	}
}

func (w *Watcher) eventLoop(s *session, events <-chan jobs.Event) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.enqueue(s, func(st *State) {
				st.Jobs = jobs.Apply(st.Jobs, event)
			})
		}
	}
}

func (w *Watcher) pollLoop(s *session) {
	for {
		if err := w.fetch(s.ctx, s); err != nil {
			w.logger.Debug("poll fetch failed", slog.Any("error", err))
		}
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

// fetch replaces the collection with the server's list, sorted newest-first.
// The REST call happens on the caller's goroutine; only the result crosses
// into the apply loop.
func (w *Watcher) fetch(ctx context.Context, s *session) error {
	w.enqueue(s, func(st *State) { st.Loading = true })

	list, err := s.api.ListJobs(ctx)
	w.enqueue(s, func(st *State) {
		st.Loading = false
		if err != nil {
			st.Err = err.Error()
			return
		}
		jobs.SortByCreatedDesc(list)
		st.Jobs = list
		st.Err = ""
	})
	return err
}

func (w *Watcher) enqueue(s *session, fn applyFunc) {
	select {
	case <-s.ctx.Done():
	case s.applyCh <- fn:
	}
}

func (w *Watcher) setError(message string) {
	w.mu.Lock()
	w.state.Err = message
	snapshot := cloneState(w.state)
	w.mu.Unlock()
	w.notify(snapshot)
}

// ClearError resets the transient error field.
func (w *Watcher) ClearError() {
	w.setError("")
}

func (w *Watcher) notify(snapshot State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- snapshot:
		default:
			// Replace the stale snapshot so subscribers converge on latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func cloneState(state State) State {
	cloned := state
	cloned.Jobs = append([]jobs.Job(nil), state.Jobs...)
	return cloned
}

func validateSession(endpoint, apiKey string) error {
	if endpoint == "" {
		return errors.New("server endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("server endpoint is not a valid URL")
	}
	if apiKey == "" {
		return errors.New("API key is required")
	}
	return nil
}
