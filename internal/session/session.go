// Package session coordinates one logical generation lifecycle: submitting a
// brief, polling the resulting job, fetching its outputs and chaining
// revisions onto it.
//
// A Session is safe for concurrent use. Its state is changed by the three
// commands (StartGeneration, RequestRevision, Reset) and by a single
// background poller per job. Every change of job bumps a generation counter
// and responses that arrive for an older generation are discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/meltingprovince/virtualset/internal/api/v1/client"
	"github.com/meltingprovince/virtualset/internal/auth"
	"github.com/meltingprovince/virtualset/internal/events"
	"github.com/meltingprovince/virtualset/internal/logger"
	"github.com/meltingprovince/virtualset/internal/types"
)

// State is the lifecycle phase shown to the presentation layer
type State string

// Session states
const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// DefaultFailureMessage is stored when a job fails without a server message
const DefaultFailureMessage = "Generation failed"

var (
	// ErrBusy is returned when a submission is already in flight
	ErrBusy = errors.New("a submission is already in progress")
	// ErrNoJob is returned when a command needs a job and the session has none
	ErrNoJob = errors.New("session has no job")
	// ErrSuperseded is returned when the session was reset or moved to another
	// job while a request was in flight; the response was discarded
	ErrSuperseded = errors.New("request superseded by a newer session state")
	// ErrPollingAbandoned wraps the last status error once the consecutive
	// failure cap is reached
	ErrPollingAbandoned = errors.New("status polling abandoned")
	// ErrResultsUnavailable is returned by RetryResults before the job completed
	ErrResultsUnavailable = errors.New("results are only available for complete jobs")
)

// JobFailedError is stored when the webhook reports a job as failed
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return e.Message
}

// Options tunes polling. Zero values fall back to DefaultOptions.
type Options struct {
	// PollInterval is the delay between status queries
	PollInterval time.Duration
	// MaxPollFailures is the number of consecutive failed polls tolerated
	// before the session gives up on the job
	MaxPollFailures int
	// MaxPollBackoff caps the delay after consecutive poll failures
	MaxPollBackoff time.Duration
	// RequestTimeout bounds each status and results request
	RequestTimeout time.Duration
	// Bus receives lifecycle events; nil disables publishing
	Bus *events.Bus
}

// DefaultOptions returns the default polling options
func DefaultOptions() Options {
	return Options{
		PollInterval:    2 * time.Second,
		MaxPollFailures: 5,
		MaxPollBackoff:  30 * time.Second,
		RequestTimeout:  client.DefaultTimeout,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.MaxPollFailures <= 0 {
		o.MaxPollFailures = def.MaxPollFailures
	}
	if o.MaxPollBackoff <= 0 {
		o.MaxPollBackoff = def.MaxPollBackoff
	}
	if o.MaxPollBackoff < o.PollInterval {
		o.MaxPollBackoff = o.PollInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = def.RequestTimeout
	}
	return o
}

// Snapshot is the read model of a session at one point in time
type Snapshot struct {
	JobID         string
	PreviousJobID string
	State         State
	Status        types.JobStatus
	Progress      float64
	Stage         string
	Results       *types.JobResults
	Err           error
	IsPolling     bool
	IsSubmitting  bool
}

// ResultsPending reports the complete-but-no-results sub-state, where the
// job finished but its outputs could not be fetched
func (s Snapshot) ResultsPending() bool {
	return s.Status == types.JobStatusComplete && s.Results == nil && s.Err != nil
}

// ProgressStage returns the coarse stage for the current progress
func (s Snapshot) ProgressStage() types.Stage {
	return types.StageForProgress(s.Progress)
}

// Session is one generation lifecycle
type Session struct {
	client client.Client
	tokens auth.TokenProvider
	opts   Options

	mu         sync.Mutex
	gen        uint64
	phase      State
	submitting bool
	jobID      string
	prevJobID  string
	status     types.JobStatus
	progress   float64
	stage      string
	results    *types.JobResults
	err        error
	polling    bool
	cancelPoll context.CancelFunc

	pollWG sync.WaitGroup
}

// New creates an idle session
func New(c client.Client, tokens auth.TokenProvider, opts Options) *Session {
	return &Session{
		client: c,
		tokens: tokens,
		opts:   opts.withDefaults(),
		phase:  StateIdle,
	}
}

// Snapshot returns the current read model
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	state := s.phase
	if s.submitting {
		state = StateSubmitting
	}
	return Snapshot{
		JobID:         s.jobID,
		PreviousJobID: s.prevJobID,
		State:         state,
		Status:        s.status,
		Progress:      s.progress,
		Stage:         s.stage,
		Results:       s.results,
		Err:           s.err,
		IsPolling:     s.polling,
		IsSubmitting:  s.submitting,
	}
}

// StartGeneration validates and submits brief, then polls the new job. An
// invalid brief or a missing credential fails before any request is sent.
// Any previous job and its results are dropped as soon as the submission
// starts.
func (s *Session) StartGeneration(ctx context.Context, brief types.Brief) error {
	if err := brief.Validate(); err != nil {
		return err
	}
	token, err := s.tokens.Token()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.stopPollerLocked()
	s.gen++
	gen := s.gen
	s.clearLocked()
	s.submitting = true
	s.mu.Unlock()

	handle, err := s.client.SubmitBrief(ctx, brief, token)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		logger.Debugf("Discarding submission result for superseded session (job: %s)", jobIDOf(handle))
		return ErrSuperseded
	}
	s.submitting = false
	if err != nil {
		s.phase = StateIdle
		s.err = err
		s.mu.Unlock()
		logger.WarnWithFields("Brief submission failed", map[string]interface{}{
			"error": err.Error(),
			"code":  client.ErrorCode(err),
		})
		return err
	}

	s.beginJobLocked(handle)
	s.startPollerLocked(gen, handle.JobID, token, s.opts.PollInterval)
	ev := s.eventLocked(events.EventSubmitted)
	s.mu.Unlock()

	logger.InfoWithFields("Brief submitted", map[string]interface{}{"job_id": handle.JobID})
	s.publish(ev)
	return nil
}

// RequestRevision submits quick fixes and notes against the current job.
// On success the session follows the new job; results of the previous job
// stay visible until the new job reaches a terminal state. On failure the
// previous state is left untouched.
func (s *Session) RequestRevision(ctx context.Context, revision types.Revision) error {
	if err := revision.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.jobID == "" {
		s.mu.Unlock()
		return ErrNoJob
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.mu.Unlock()

	token, err := s.tokens.Token()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}
	gen := s.gen
	originalJobID := s.jobID
	s.submitting = true
	s.mu.Unlock()

	handle, err := s.client.SubmitRevision(ctx, originalJobID, revision, token)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		logger.Debugf("Discarding revision result for superseded session (job: %s)", jobIDOf(handle))
		return ErrSuperseded
	}
	s.submitting = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		logger.WarnWithFields("Revision submission failed", map[string]interface{}{
			"job_id": originalJobID,
			"error":  err.Error(),
			"code":   client.ErrorCode(err),
		})
		return err
	}

	// Swap the job and retire the old poller in one step
	s.stopPollerLocked()
	s.gen++
	gen = s.gen
	results := s.results
	s.beginJobLocked(handle)
	s.results = results
	s.prevJobID = originalJobID
	s.startPollerLocked(gen, handle.JobID, token, s.opts.PollInterval)
	ev := s.eventLocked(events.EventRevisionSubmitted)
	s.mu.Unlock()

	logger.InfoWithFields("Revision submitted", map[string]interface{}{
		"job_id":          handle.JobID,
		"original_job_id": originalJobID,
	})
	s.publish(ev)
	return nil
}

// Track follows an existing job, e.g. one submitted by an earlier process.
// The first status query is sent immediately.
func (s *Session) Track(ctx context.Context, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return ErrNoJob
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	token, err := s.tokens.Token()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.stopPollerLocked()
	s.gen++
	gen := s.gen
	s.clearLocked()
	s.beginJobLocked(&types.JobHandle{JobID: jobID})
	s.startPollerLocked(gen, jobID, token, 0)
	s.mu.Unlock()

	logger.Debugf("Tracking job %s", jobID)
	return nil
}

// RetryResults fetches the outputs again after a failed results fetch
func (s *Session) RetryResults(ctx context.Context) error {
	s.mu.Lock()
	if s.jobID == "" {
		s.mu.Unlock()
		return ErrNoJob
	}
	if s.status != types.JobStatusComplete {
		s.mu.Unlock()
		return ErrResultsUnavailable
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}
	gen, jobID := s.gen, s.jobID
	s.mu.Unlock()

	token, err := s.tokens.Token()
	if err != nil {
		return err
	}
	return s.fetchResults(ctx, gen, jobID, token)
}

// Reset stops polling and returns the session to idle. It does not wait for
// requests already in flight; their responses are discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	s.stopPollerLocked()
	s.gen++
	s.clearLocked()
	s.submitting = false
	ev := s.eventLocked(events.EventReset)
	s.mu.Unlock()

	s.publish(ev)
}

// Close resets the session and waits for its poller to exit
func (s *Session) Close() {
	s.Reset()
	s.pollWG.Wait()
}

// clearLocked drops every job related field
func (s *Session) clearLocked() {
	s.phase = StateIdle
	s.jobID = ""
	s.prevJobID = ""
	s.status = ""
	s.progress = 0
	s.stage = ""
	s.results = nil
	s.err = nil
}

// beginJobLocked switches to a freshly accepted job
func (s *Session) beginJobLocked(handle *types.JobHandle) {
	status := handle.Status
	if status == "" || status.IsTerminal() {
		status = types.JobStatusQueued
	}
	s.phase = StatePolling
	s.jobID = handle.JobID
	s.status = status
	s.progress = 0
	s.stage = ""
	s.results = nil
	s.err = nil
}

func (s *Session) stopPollerLocked() {
	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}
	s.polling = false
}

func (s *Session) eventLocked(t events.EventType) events.Event {
	return events.Event{
		Type:          t,
		JobID:         s.jobID,
		PreviousJobID: s.prevJobID,
		Status:        s.status,
		Progress:      s.progress,
		Stage:         s.stage,
		Err:           s.err,
	}
}

func (s *Session) publish(ev events.Event) {
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(ev)
	}
}

func jobIDOf(handle *types.JobHandle) string {
	if handle == nil {
		return ""
	}
	return handle.JobID
}

func failureMessage(status *types.StatusResponse) string {
	if msg := strings.TrimSpace(status.Error); msg != "" {
		return msg
	}
	return DefaultFailureMessage
}

func abandonedError(err error) error {
	return fmt.Errorf("%w: %w", ErrPollingAbandoned, err)
}
