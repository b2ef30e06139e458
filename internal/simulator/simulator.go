// Package simulator implements an in-memory stand-in for the generation
// webhook. Jobs advance a fixed step on every status query and live only as
// long as the process.
package simulator

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meltingprovince/virtualset/internal/types"
)

// Defaults
const (
	DefaultStep         = 20.0
	DefaultAssetBaseURL = "https://assets.meltingprovince.dev/virtual-sets"
	JobIDPrefix         = "job_"
)

var (
	// ErrJobNotFound is returned for unknown job ids
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotComplete is returned when results of a running job are requested
	ErrJobNotComplete = errors.New("job not complete")
)

// Options configures a Simulator
type Options struct {
	// Step is the progress added per status query
	Step float64
	// AssetBaseURL prefixes every generated image URL
	AssetBaseURL string
	// Now stamps jobs; defaults to time.Now
	Now func() time.Time
}

// Job is a simulated generation job
type Job struct {
	ID            string
	OriginalJobID string
	Brief         types.BriefFields
	OutputType    types.OutputType
	Fixes         []string
	Notes         string
	Status        types.JobStatus
	Progress      float64
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Simulator is a mutex guarded job table
type Simulator struct {
	mu   sync.Mutex
	jobs map[string]*Job
	opts Options
}

// New creates an empty simulator
func New(opts Options) *Simulator {
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	if opts.AssetBaseURL == "" {
		opts.AssetBaseURL = DefaultAssetBaseURL
	}
	opts.AssetBaseURL = strings.TrimRight(opts.AssetBaseURL, "/")
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Simulator{jobs: make(map[string]*Job), opts: opts}
}

func newJobID() string {
	return JobIDPrefix + uuid.New().String()
}

// Submit queues a job for brief
func (s *Simulator) Submit(brief types.BriefFields, outputType types.OutputType) Job {
	if !outputType.IsValid() {
		outputType = types.OutputImages
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	job := &Job{
		ID:         newJobID(),
		Brief:      brief,
		OutputType: outputType,
		Status:     types.JobStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.jobs[job.ID] = job
	return job.clone()
}

// Revise queues a job that reuses the brief of originalID with fixes and notes attached
func (s *Simulator) Revise(originalID string, fixes []string, notes string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.jobs[originalID]
	if !ok {
		return Job{}, fmt.Errorf("original %w: %s", ErrJobNotFound, originalID)
	}

	now := s.opts.Now()
	job := &Job{
		ID:            newJobID(),
		OriginalJobID: originalID,
		Brief:         original.Brief,
		OutputType:    original.OutputType,
		Fixes:         append([]string(nil), fixes...),
		Notes:         notes,
		Status:        types.JobStatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.jobs[job.ID] = job
	return job.clone(), nil
}

// Poll advances a running job by one step and returns its status
func (s *Simulator) Poll(id string) (types.StatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return types.StatusResponse{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	if !job.Status.IsTerminal() {
		job.Progress = types.ClampProgress(job.Progress + s.opts.Step)
		job.Status = types.JobStatusProcessing
		if job.Progress >= 100 {
			job.Status = types.JobStatusComplete
		}
		job.UpdatedAt = s.opts.Now()
	}

	return job.statusResponse(), nil
}

// Results returns the outputs of a completed job
func (s *Simulator) Results(id string) (*types.JobResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status != types.JobStatusComplete {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobNotComplete, id, job.Status)
	}

	images := make([]interface{}, 0, len(types.CameraViews))
	prompts := make(map[string]interface{}, len(types.CameraViews))
	for _, view := range types.CameraViews {
		images = append(images, map[string]interface{}{
			"camera": view.ID,
			"label":  view.Label,
			"url":    fmt.Sprintf("%s/%s/%s.png", s.opts.AssetBaseURL, job.ID, view.ID),
		})
		prompts[view.ID] = buildPrompt(job, view)
	}

	outputs := map[string]interface{}{"images": images}
	if job.OutputType == types.OutputVideo {
		outputs["video"] = fmt.Sprintf("%s/%s/flythrough.mp4", s.opts.AssetBaseURL, job.ID)
	}

	return &types.JobResults{JobID: job.ID, Outputs: outputs, Prompts: prompts}, nil
}

// Fail forces a job into the failed state
func (s *Simulator) Fail(id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	job.Status = types.JobStatusFailed
	job.Error = message
	job.UpdatedAt = s.opts.Now()
	return nil
}

// Get returns a copy of a job
func (s *Simulator) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.clone(), true
}

// Len returns the number of known jobs
func (s *Simulator) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (j *Job) clone() Job {
	c := *j
	c.Brief.Elements = append([]string(nil), j.Brief.Elements...)
	c.Fixes = append([]string(nil), j.Fixes...)
	return c
}

func (j *Job) statusResponse() types.StatusResponse {
	resp := types.StatusResponse{
		JobID:    j.ID,
		Status:   j.Status,
		Progress: j.Progress,
		Stage:    types.StageForProgress(j.Progress).Label,
	}
	if j.Status == types.JobStatusFailed {
		resp.Error = j.Error
	}
	return resp
}

// buildPrompt describes one camera view of the set
func buildPrompt(job *Job, view types.CameraView) string {
	b := job.Brief

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s virtual studio set, %s (%s).", b.ShowType, strings.ToLower(view.Label), strings.ToLower(view.Description))

	mood := string(b.Mood)
	if opt, ok := types.LookupMood(b.Mood); ok {
		mood = opt.Label
	}
	fmt.Fprintf(&sb, " Mood: %s.", mood)
	if b.MoodNotes != "" {
		fmt.Fprintf(&sb, " %s.", strings.TrimSuffix(b.MoodNotes, "."))
	}

	if preset, ok := types.LookupColorPreset(b.ColorPreset); ok {
		fmt.Fprintf(&sb, " Palette: %s (%s).", preset.Name, strings.Join(preset.Colors, ", "))
	} else {
		sb.WriteString(" Palette: custom.")
	}

	if len(b.Elements) > 0 {
		fmt.Fprintf(&sb, " Featuring %s.", strings.Join(b.Elements, ", "))
	}
	if b.ElementNotes != "" {
		fmt.Fprintf(&sb, " %s.", strings.TrimSuffix(b.ElementNotes, "."))
	}
	if b.AdditionalNotes != "" {
		fmt.Fprintf(&sb, " %s.", strings.TrimSuffix(b.AdditionalNotes, "."))
	}

	if len(job.Fixes) > 0 {
		fmt.Fprintf(&sb, " Revision: %s.", strings.Join(job.Fixes, ", "))
	}
	if job.Notes != "" {
		fmt.Fprintf(&sb, " Revision notes: %s.", strings.TrimSuffix(job.Notes, "."))
	}
	return sb.String()
}
