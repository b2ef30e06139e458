// Package client provides the typed client for the generation webhook
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meltingprovince/virtualset/internal/api/v1/routes"
	"github.com/meltingprovince/virtualset/internal/types"
)

// DefaultTimeout is the default timeout for webhook requests
const DefaultTimeout = 20 * time.Second

// AuthHeader carries the opaque host credential on every request
const AuthHeader = types.AuthHeader

// timestampLayout matches the ISO-8601 form with milliseconds used by the webhook
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Client defines the four webhook operations. None of them retry.
type Client interface {
	SubmitBrief(ctx context.Context, brief types.Brief, authToken string) (*types.JobHandle, error)
	CheckStatus(ctx context.Context, jobID, authToken string) (*types.StatusResponse, error)
	GetResults(ctx context.Context, jobID, authToken string) (*types.JobResults, error)
	SubmitRevision(ctx context.Context, jobID string, revision types.Revision, authToken string) (*types.JobHandle, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the webhook client
type Options struct {
	// BaseURL is the webhook base URL, e.g. https://host/webhook
	BaseURL string

	// Timeout applies when the request context has no deadline
	Timeout time.Duration

	// OutputType is sent with every brief
	OutputType types.OutputType

	// Now stamps outgoing requests; defaults to time.Now
	Now func() time.Time
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL:    routes.DefaultDevBaseURL,
		Timeout:    DefaultTimeout,
		OutputType: types.OutputImages,
		Now:        time.Now,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL    string
	timeout    time.Duration
	outputType types.OutputType
	now        func() time.Time
}

// NewClient creates a new webhook client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q must be absolute", opts.BaseURL)
	}

	c := &APIClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		outputType: opts.OutputType,
		now:        opts.Now,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.outputType == "" {
		c.outputType = types.OutputImages
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint, authToken string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")
	if authToken != "" {
		agent.Set(AuthHeader, authToken)
	}

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and decodes a 2xx body into v
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < 200 || statusCode >= 300 {
		return &httpError{code: statusCode, message: errorMessage(statusCode, body)}
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint, authToken string, body, response interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agent, err := c.createAgent(ctx, method, endpoint, authToken, body)
	if err != nil {
		return err
	}

	return c.doRequest(agent, response)
}

func (c *APIClient) timestamp() string {
	return c.now().UTC().Format(timestampLayout)
}

// SubmitBrief sends a normalized brief and returns the new job handle
func (c *APIClient) SubmitBrief(ctx context.Context, brief types.Brief, authToken string) (*types.JobHandle, error) {
	req := types.SubmitBriefRequest{
		AuthToken:  authToken,
		Brief:      brief.Normalize(),
		OutputType: c.outputType,
		Timestamp:  c.timestamp(),
	}

	var handle types.JobHandle
	if err := c.executeRequest(ctx, http.MethodPost, routes.BriefSubmitURL(), authToken, req, &handle); err != nil {
		return nil, &SubmissionError{toRequestError("", err)}
	}
	if err := checkHandle(&handle); err != nil {
		return nil, &SubmissionError{RequestError{Message: err.Error(), Err: err}}
	}
	return &handle, nil
}

// CheckStatus fetches status, progress and stage of a job
func (c *APIClient) CheckStatus(ctx context.Context, jobID, authToken string) (*types.StatusResponse, error) {
	var status types.StatusResponse
	if err := c.executeRequest(ctx, http.MethodGet, routes.JobStatusURL(jobID), authToken, nil, &status); err != nil {
		return nil, &StatusQueryError{toRequestError(jobID, err)}
	}
	parsed, err := types.ParseJobStatus(string(status.Status))
	if err != nil {
		return nil, &StatusQueryError{RequestError{JobID: jobID, Message: err.Error(), Err: err}}
	}
	status.Status = parsed
	if status.JobID == "" {
		status.JobID = jobID
	}
	return &status, nil
}

// GetResults fetches the outputs of a completed job
func (c *APIClient) GetResults(ctx context.Context, jobID, authToken string) (*types.JobResults, error) {
	var results types.JobResults
	if err := c.executeRequest(ctx, http.MethodGet, routes.JobResultURL(jobID), authToken, nil, &results); err != nil {
		return nil, &ResultsFetchError{toRequestError(jobID, err)}
	}
	if results.JobID == "" {
		results.JobID = jobID
	}
	return &results, nil
}

// SubmitRevision sends quick fixes and notes against jobID and returns the new job handle
func (c *APIClient) SubmitRevision(ctx context.Context, jobID string, revision types.Revision, authToken string) (*types.JobHandle, error) {
	fixes := revision.Fixes
	if fixes == nil {
		fixes = []string{}
	}
	req := types.SubmitRevisionRequest{
		AuthToken:     authToken,
		OriginalJobID: jobID,
		Fixes:         fixes,
		Notes:         revision.Notes,
		Timestamp:     c.timestamp(),
	}

	var handle types.JobHandle
	if err := c.executeRequest(ctx, http.MethodPost, routes.BriefRevisionURL(), authToken, req, &handle); err != nil {
		return nil, &RevisionError{toRequestError(jobID, err)}
	}
	if err := checkHandle(&handle); err != nil {
		return nil, &RevisionError{RequestError{JobID: jobID, Message: err.Error(), Err: err}}
	}
	return &handle, nil
}

var errMissingJobID = errors.New("response missing jobId")

// checkHandle requires a job id, defaults the status to queued and
// normalizes a reported status
func checkHandle(handle *types.JobHandle) error {
	if strings.TrimSpace(handle.JobID) == "" {
		return errMissingJobID
	}
	if handle.Status == "" {
		handle.Status = types.JobStatusQueued
		return nil
	}
	status, err := types.ParseJobStatus(string(handle.Status))
	if err != nil {
		return err
	}
	handle.Status = status
	return nil
}
