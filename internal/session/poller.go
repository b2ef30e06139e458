package session

import (
	"context"
	"time"

	"github.com/meltingprovince/virtualset/internal/events"
	"github.com/meltingprovince/virtualset/internal/logger"
	"github.com/meltingprovince/virtualset/internal/types"
)

// startPollerLocked launches the poller for jobID. The caller must have
// stopped any previous poller under the same lock.
func (s *Session) startPollerLocked(gen uint64, jobID, token string, initialDelay time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelPoll = cancel
	s.polling = true

	s.pollWG.Add(1)
	go s.poll(ctx, gen, jobID, token, initialDelay)
}

// poll queries the job status until the job is terminal, the poller is
// cancelled or too many consecutive queries failed. Queries are serialized:
// the next one is scheduled only after the previous one resolved.
func (s *Session) poll(ctx context.Context, gen uint64, jobID, token string, delay time.Duration) {
	defer s.pollWG.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		reqCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		status, err := s.client.CheckStatus(reqCtx, jobID, token)
		cancel()

		if ctx.Err() != nil {
			return
		}

		if err != nil {
			failures++
			if failures >= s.opts.MaxPollFailures {
				logger.ErrorWithFields("Giving up on job status", map[string]interface{}{
					"job_id":   jobID,
					"failures": failures,
					"error":    err.Error(),
				})
				s.abandon(gen, jobID, err)
				return
			}
			backoff := s.backoff(failures)
			logger.DebugWithFields("Status poll failed, retrying", map[string]interface{}{
				"job_id":   jobID,
				"failures": failures,
				"retry_in": backoff.String(),
				"error":    err.Error(),
			})
			timer.Reset(backoff)
			continue
		}
		failures = 0

		next, ok := s.applyStatus(gen, jobID, status)
		if !ok {
			return
		}
		switch next {
		case types.JobStatusComplete:
			if ctx.Err() == nil {
				_ = s.fetchResults(ctx, gen, jobID, token)
			}
			return
		case types.JobStatusFailed:
			return
		}
		timer.Reset(s.opts.PollInterval)
	}
}

// backoff returns the delay after n consecutive failures: the poll interval
// doubled per failure, capped at MaxPollBackoff
func (s *Session) backoff(n int) time.Duration {
	d := s.opts.PollInterval
	for i := 0; i < n; i++ {
		d *= 2
		if d >= s.opts.MaxPollBackoff {
			return s.opts.MaxPollBackoff
		}
	}
	return d
}

// applyStatus stores a poll response if it still belongs to the current job.
// It returns the applied status and false when the response was stale.
func (s *Session) applyStatus(gen uint64, jobID string, status *types.StatusResponse) (types.JobStatus, bool) {
	s.mu.Lock()
	if s.gen != gen || s.jobID != jobID {
		s.mu.Unlock()
		logger.Debugf("Ignoring stale status for job %s", jobID)
		return "", false
	}

	s.status = status.Status
	progress := types.ClampProgress(status.Progress)
	if status.Status == types.JobStatusComplete {
		progress = 100
	}
	if progress > s.progress {
		s.progress = progress
	}
	s.stage = status.Stage
	if s.stage == "" {
		s.stage = types.StageForProgress(s.progress).Label
	}

	var terminal *events.Event
	if status.Status == types.JobStatusFailed {
		s.phase = StateFailed
		s.stopPollerLocked()
		s.results = nil
		s.err = &JobFailedError{JobID: jobID, Message: failureMessage(status)}
		ev := s.eventLocked(events.EventFailed)
		terminal = &ev
	}
	if status.Status == types.JobStatusComplete {
		s.polling = false
	}
	ev := s.eventLocked(events.EventStatusUpdated)
	s.mu.Unlock()

	s.publish(ev)
	if terminal != nil {
		logger.WarnWithFields("Generation failed", map[string]interface{}{
			"job_id": jobID,
			"error":  terminal.Err.Error(),
		})
		s.publish(*terminal)
	}
	return status.Status, true
}

// fetchResults fetches the outputs of a completed job. A failure leaves the
// session complete without results and with the error set. ErrSuperseded is
// returned when the session moved on before the response arrived.
func (s *Session) fetchResults(ctx context.Context, gen uint64, jobID, token string) error {
	reqCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	results, err := s.client.GetResults(reqCtx, jobID, token)
	cancel()

	s.mu.Lock()
	if s.gen != gen || s.jobID != jobID {
		s.mu.Unlock()
		logger.Debugf("Ignoring stale results for job %s", jobID)
		return ErrSuperseded
	}
	s.phase = StateComplete
	s.stopPollerLocked()
	if err != nil {
		s.results = nil
		s.err = err
	} else {
		s.results = results
		s.err = nil
	}
	ev := s.eventLocked(events.EventCompleted)
	s.mu.Unlock()

	if err != nil {
		logger.WarnWithFields("Job complete but results unavailable", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
	} else {
		logger.InfoWithFields("Generation complete", map[string]interface{}{
			"job_id": jobID,
			"images": len(results.Images()),
		})
	}
	s.publish(ev)
	return err
}

// abandon fails the session after too many consecutive poll errors
func (s *Session) abandon(gen uint64, jobID string, lastErr error) {
	s.mu.Lock()
	if s.gen != gen || s.jobID != jobID {
		s.mu.Unlock()
		return
	}
	s.phase = StateFailed
	s.stopPollerLocked()
	s.results = nil
	s.err = abandonedError(lastErr)
	ev := s.eventLocked(events.EventFailed)
	s.mu.Unlock()

	s.publish(ev)
}
