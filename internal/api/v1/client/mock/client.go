package mock

import (
	"context"
	"sync"

	"github.com/meltingprovince/virtualset/internal/api/v1/client"
	"github.com/meltingprovince/virtualset/internal/types"
)

// SubmitBriefCall records a SubmitBrief invocation
type SubmitBriefCall struct {
	Ctx       context.Context
	Brief     types.Brief
	AuthToken string
}

// JobCall records a CheckStatus or GetResults invocation
type JobCall struct {
	Ctx       context.Context
	JobID     string
	AuthToken string
}

// SubmitRevisionCall records a SubmitRevision invocation
type SubmitRevisionCall struct {
	Ctx       context.Context
	JobID     string
	Revision  types.Revision
	AuthToken string
}

// MockClient implements the Client interface for testing. It is safe for
// concurrent use since sessions poll from a background goroutine.
type MockClient struct {
	// Function fields that can be set to mock behavior
	SubmitBriefFn    func(ctx context.Context, brief types.Brief, authToken string) (*types.JobHandle, error)
	CheckStatusFn    func(ctx context.Context, jobID, authToken string) (*types.StatusResponse, error)
	GetResultsFn     func(ctx context.Context, jobID, authToken string) (*types.JobResults, error)
	SubmitRevisionFn func(ctx context.Context, jobID string, revision types.Revision, authToken string) (*types.JobHandle, error)

	mu sync.Mutex

	// Call tracking for verification; read through the accessor methods
	submitBriefCalls    []SubmitBriefCall
	checkStatusCalls    []JobCall
	getResultsCalls     []JobCall
	submitRevisionCalls []SubmitRevisionCall
}

// Ensure MockClient implements Client interface
var _ client.Client = (*MockClient)(nil)

// SubmitBrief mocks the SubmitBrief method
func (m *MockClient) SubmitBrief(ctx context.Context, brief types.Brief, authToken string) (*types.JobHandle, error) {
	m.mu.Lock()
	m.submitBriefCalls = append(m.submitBriefCalls, SubmitBriefCall{Ctx: ctx, Brief: brief, AuthToken: authToken})
	fn := m.SubmitBriefFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, brief, authToken)
	}

	// Default mock implementation
	return &types.JobHandle{JobID: "job_1", Status: types.JobStatusQueued}, nil
}

// CheckStatus mocks the CheckStatus method
func (m *MockClient) CheckStatus(ctx context.Context, jobID, authToken string) (*types.StatusResponse, error) {
	m.mu.Lock()
	m.checkStatusCalls = append(m.checkStatusCalls, JobCall{Ctx: ctx, JobID: jobID, AuthToken: authToken})
	fn := m.CheckStatusFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, jobID, authToken)
	}

	return &types.StatusResponse{JobID: jobID, Status: types.JobStatusComplete, Progress: 100}, nil
}

// GetResults mocks the GetResults method
func (m *MockClient) GetResults(ctx context.Context, jobID, authToken string) (*types.JobResults, error) {
	m.mu.Lock()
	m.getResultsCalls = append(m.getResultsCalls, JobCall{Ctx: ctx, JobID: jobID, AuthToken: authToken})
	fn := m.GetResultsFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, jobID, authToken)
	}

	return &types.JobResults{
		JobID:   jobID,
		Outputs: map[string]interface{}{"images": []interface{}{"https://example.com/" + jobID + "/front.png"}},
	}, nil
}

// SubmitRevision mocks the SubmitRevision method
func (m *MockClient) SubmitRevision(ctx context.Context, jobID string, revision types.Revision, authToken string) (*types.JobHandle, error) {
	m.mu.Lock()
	m.submitRevisionCalls = append(m.submitRevisionCalls, SubmitRevisionCall{Ctx: ctx, JobID: jobID, Revision: revision, AuthToken: authToken})
	fn := m.SubmitRevisionFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, jobID, revision, authToken)
	}

	return &types.JobHandle{JobID: jobID + "_rev", Status: types.JobStatusQueued}, nil
}

// SubmitBriefCalls returns a copy of the recorded SubmitBrief calls
func (m *MockClient) SubmitBriefCalls() []SubmitBriefCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SubmitBriefCall(nil), m.submitBriefCalls...)
}

// CheckStatusCalls returns a copy of the recorded CheckStatus calls
func (m *MockClient) CheckStatusCalls() []JobCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]JobCall(nil), m.checkStatusCalls...)
}

// GetResultsCalls returns a copy of the recorded GetResults calls
func (m *MockClient) GetResultsCalls() []JobCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]JobCall(nil), m.getResultsCalls...)
}

// SubmitRevisionCalls returns a copy of the recorded SubmitRevision calls
func (m *MockClient) SubmitRevisionCalls() []SubmitRevisionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SubmitRevisionCall(nil), m.submitRevisionCalls...)
}

// StatusCallsFor counts CheckStatus calls for jobID
func (m *MockClient) StatusCallsFor(jobID string) int {
	n := 0
	for _, c := range m.CheckStatusCalls() {
		if c.JobID == jobID {
			n++
		}
	}
	return n
}
