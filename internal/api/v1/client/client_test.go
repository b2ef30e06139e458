package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltingprovince/virtualset/internal/types"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
}

func testBrief() types.Brief {
	return types.Brief{
		ShowType:       "Talk Show",
		ShowTypeCustom: "Late Night",
		Mood:           types.MoodProfessional,
		ColorPreset:    "Corporate Blue",
		Elements:       []string{"City Skyline", "LED Screens"},
		MoodNotes:      "calm",
	}
}

// recordedRequest is what the test server saw
type recordedRequest struct {
	Method string
	Path   string
	Token  string
	Body   map[string]interface{}
}

type testServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func (s *testServer) last(t *testing.T) recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*testServer, *APIClient) {
	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Token: r.Header.Get(AuthHeader)}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		ts.mu.Lock()
		ts.requests = append(ts.requests, rec)
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	c, err := NewClient(&Options{BaseURL: ts.URL + "/", Timeout: 2 * time.Second, Now: fixedNow})
	require.NoError(t, err)
	return ts, c.(*APIClient)
}

func respond(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Options
		wantErr bool
	}{
		{name: "nil options", opts: nil},
		{name: "valid options", opts: &Options{BaseURL: "https://example.com/webhook", Timeout: 10 * time.Second}},
		{name: "invalid base URL", opts: &Options{BaseURL: "://invalid-url"}, wantErr: true},
		{name: "relative base URL", opts: &Options{BaseURL: "/webhook"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			apiClient := c.(*APIClient)
			if tt.opts == nil {
				assert.Equal(t, DefaultTimeout, apiClient.timeout)
			} else {
				assert.Equal(t, tt.opts.Timeout, apiClient.timeout)
			}
			assert.Equal(t, types.OutputImages, apiClient.outputType)
		})
	}
}

func TestAPIClient_SubmitBrief(t *testing.T) {
	ts, c := setupTestServer(t, respond(http.StatusOK, `{"jobId":"job_1","status":"queued"}`))

	handle, err := c.SubmitBrief(context.Background(), testBrief(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &types.JobHandle{JobID: "job_1", Status: types.JobStatusQueued}, handle)

	req := ts.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/brief-submit", req.Path)
	assert.Equal(t, "tok", req.Token)
	assert.Equal(t, "tok", req.Body["authToken"])
	assert.Equal(t, "images", req.Body["outputType"])
	assert.Equal(t, "2024-05-01T10:30:00.000Z", req.Body["timestamp"])

	brief, ok := req.Body["brief"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Late Night", brief["showType"])
	assert.Equal(t, "professional", brief["mood"])
	assert.Equal(t, "Corporate Blue", brief["colorPreset"])
	assert.Equal(t, []interface{}{"City Skyline", "LED Screens"}, brief["elements"])
	assert.Equal(t, "calm", brief["moodNotes"])
	assert.Equal(t, "", brief["additionalNotes"])
	assert.NotContains(t, brief, "showTypeCustom")
}

func TestAPIClient_SubmitBriefDefaultsStatus(t *testing.T) {
	_, c := setupTestServer(t, respond(http.StatusOK, `{"jobId":"job_9"}`))

	handle, err := c.SubmitBrief(context.Background(), testBrief(), "")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusQueued, handle.Status)
}

func TestAPIClient_HandleStatusIsNormalized(t *testing.T) {
	tests := []struct {
		name string
		body string
		want types.JobStatus
	}{
		{name: "capitalized", body: `{"jobId":"job_1","status":"Queued"}`, want: types.JobStatusQueued},
		{name: "padded upper case", body: `{"jobId":"job_1","status":" PROCESSING "}`, want: types.JobStatusProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := setupTestServer(t, respond(http.StatusOK, tt.body))

			handle, err := c.SubmitBrief(context.Background(), testBrief(), "tok")
			require.NoError(t, err)
			assert.Equal(t, tt.want, handle.Status)

			handle, err = c.SubmitRevision(context.Background(), "job_0", types.Revision{Notes: "warmer"}, "tok")
			require.NoError(t, err)
			assert.Equal(t, tt.want, handle.Status)
		})
	}
}

func TestAPIClient_SubmitBriefErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode int
		wantMsg  string
	}{
		{name: "json message", handler: respond(http.StatusBadRequest, `{"error":"bad_request","message":"elements required"}`), wantCode: 400, wantMsg: "elements required"},
		{name: "json error only", handler: respond(http.StatusUnauthorized, `{"error":"invalid token"}`), wantCode: 401, wantMsg: "invalid token"},
		{name: "plain text", handler: respond(http.StatusBadGateway, "upstream down\n"), wantCode: 502, wantMsg: "upstream down"},
		{name: "empty body", handler: respond(http.StatusInternalServerError, ""), wantCode: 500, wantMsg: "request failed with status 500"},
		{name: "missing job id", handler: respond(http.StatusOK, `{"status":"queued"}`), wantMsg: "response missing jobId"},
		{name: "undecodable body", handler: respond(http.StatusOK, `{invalid json`), wantMsg: "error decoding response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := setupTestServer(t, tt.handler)

			handle, err := c.SubmitBrief(context.Background(), testBrief(), "tok")
			require.Error(t, err)
			assert.Nil(t, handle)

			var subErr *SubmissionError
			require.True(t, errors.As(err, &subErr))
			assert.Equal(t, tt.wantCode, ErrorCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAPIClient_CheckStatus(t *testing.T) {
	ts, c := setupTestServer(t, respond(http.StatusOK, `{"jobId":"job_1","status":"processing","progress":40,"stage":"Generating"}`))

	status, err := c.CheckStatus(context.Background(), "job_1", "tok")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusProcessing, status.Status)
	assert.Equal(t, 40.0, status.Progress)
	assert.Equal(t, "Generating", status.Stage)

	req := ts.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/job-status/job_1", req.Path)
	assert.Equal(t, "tok", req.Token)
	assert.Nil(t, req.Body)
}

func TestAPIClient_CheckStatusFillsJobID(t *testing.T) {
	ts, c := setupTestServer(t, respond(http.StatusOK, `{"status":"queued"}`))

	status, err := c.CheckStatus(context.Background(), "job_7", "")
	require.NoError(t, err)
	assert.Equal(t, "job_7", status.JobID)
	assert.Equal(t, types.JobStatusQueued, status.Status)
	assert.Empty(t, ts.last(t).Token)
}

func TestAPIClient_CheckStatusNormalizesStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   types.JobStatus
	}{
		{name: "capitalized complete", status: "Complete", want: types.JobStatusComplete},
		{name: "upper case failed", status: "FAILED", want: types.JobStatusFailed},
		{name: "padded processing", status: " Processing ", want: types.JobStatusProcessing},
		{name: "canonical queued", status: "queued", want: types.JobStatusQueued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(map[string]interface{}{"jobId": "job_1", "status": tt.status, "progress": 100})
			require.NoError(t, err)
			_, c := setupTestServer(t, respond(http.StatusOK, string(body)))

			status, err := c.CheckStatus(context.Background(), "job_1", "tok")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Status)
			assert.Equal(t, tt.want == types.JobStatusComplete || tt.want == types.JobStatusFailed, status.Status.IsTerminal())
		})
	}
}

func TestAPIClient_CheckStatusErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, c := setupTestServer(t, respond(http.StatusNotFound, `{"error":"job not found"}`))

		_, err := c.CheckStatus(context.Background(), "job_x", "tok")
		var statusErr *StatusQueryError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, "job_x", statusErr.JobID)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode())
		assert.Equal(t, "failed to check status for job job_x: job not found", err.Error())
	})

	t.Run("unknown status", func(t *testing.T) {
		_, c := setupTestServer(t, respond(http.StatusOK, `{"jobId":"job_1","status":"exploded"}`))

		_, err := c.CheckStatus(context.Background(), "job_1", "tok")
		var statusErr *StatusQueryError
		require.True(t, errors.As(err, &statusErr))
		assert.Contains(t, err.Error(), "invalid job status")
	})
}

func TestAPIClient_GetResults(t *testing.T) {
	ts, c := setupTestServer(t, respond(http.StatusOK,
		`{"jobId":"job_1","outputs":{"images":["https://cdn/front.png",{"url":"https://cdn/wide.png"}]},"prompts":{"front":"a set"}}`))

	results, err := c.GetResults(context.Background(), "job_1", "tok")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/front.png", "https://cdn/wide.png"}, results.Images())
	assert.Equal(t, "a set", results.Prompts["front"])
	assert.Equal(t, "/job-result/job_1", ts.last(t).Path)
}

func TestAPIClient_GetResultsError(t *testing.T) {
	_, c := setupTestServer(t, respond(http.StatusConflict, `{"error":"job not complete"}`))

	_, err := c.GetResults(context.Background(), "job_1", "tok")
	var resErr *ResultsFetchError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, http.StatusConflict, ErrorCode(err))
}

func TestAPIClient_SubmitRevision(t *testing.T) {
	ts, c := setupTestServer(t, respond(http.StatusOK, `{"jobId":"job_2","status":"queued"}`))

	handle, err := c.SubmitRevision(context.Background(), "job_1",
		types.Revision{Fixes: []string{"Make it brighter"}, Notes: "too dark"}, "tok")
	require.NoError(t, err)
	assert.Equal(t, "job_2", handle.JobID)

	req := ts.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/brief-revision", req.Path)
	assert.Equal(t, "tok", req.Token)
	assert.Equal(t, "tok", req.Body["authToken"])
	assert.Equal(t, "job_1", req.Body["originalJobId"])
	assert.Equal(t, []interface{}{"Make it brighter"}, req.Body["fixes"])
	assert.Equal(t, "too dark", req.Body["notes"])
	assert.Equal(t, "2024-05-01T10:30:00.000Z", req.Body["timestamp"])
}

func TestAPIClient_SubmitRevisionSendsEmptyFixes(t *testing.T) {
	ts, c := setupTestServer(t, respond(http.StatusOK, `{"jobId":"job_2","status":"queued"}`))

	_, err := c.SubmitRevision(context.Background(), "job_1", types.Revision{Notes: "warmer"}, "")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, ts.last(t).Body["fixes"])
}

func TestAPIClient_SubmitRevisionError(t *testing.T) {
	_, c := setupTestServer(t, respond(http.StatusNotFound, `{"error":"original job not found"}`))

	_, err := c.SubmitRevision(context.Background(), "job_1", types.Revision{Notes: "x"}, "tok")
	var revErr *RevisionError
	require.True(t, errors.As(err, &revErr))
	assert.Equal(t, "job_1", revErr.JobID)
	assert.Contains(t, err.Error(), "original job not found")
}

func TestAPIClient_ContextHandling(t *testing.T) {
	t.Run("cancelled before send", func(t *testing.T) {
		ts, c := setupTestServer(t, respond(http.StatusOK, `{"jobId":"job_1"}`))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.SubmitBrief(ctx, testBrief(), "tok")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 0, ErrorCode(err))

		ts.mu.Lock()
		defer ts.mu.Unlock()
		assert.Empty(t, ts.requests)
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		_, c := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"jobId":"job_1","status":"queued"}`))
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.CheckStatus(ctx, "job_1", "tok")
		var statusErr *StatusQueryError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, 0, statusErr.StatusCode())
		assert.Contains(t, err.Error(), "error sending request")
	})
}

func TestAPIClient_createAgent(t *testing.T) {
	c, err := NewClient(&Options{BaseURL: "http://example.com"})
	require.NoError(t, err)
	apiClient := c.(*APIClient)

	t.Run("valid request", func(t *testing.T) {
		agent, err := apiClient.createAgent(context.Background(), http.MethodGet, "/job-status/job_1", "tok", nil)
		assert.NoError(t, err)
		assert.NotNil(t, agent)
	})

	t.Run("unsupported method", func(t *testing.T) {
		agent, err := apiClient.createAgent(context.Background(), http.MethodDelete, "/job-status/job_1", "", nil)
		assert.Error(t, err)
		assert.Nil(t, agent)
		assert.Contains(t, err.Error(), "unsupported HTTP method")
	})
}

func TestErrorMessage(t *testing.T) {
	long := make([]byte, maxErrorBodyLen+100)
	for i := range long {
		long[i] = 'x'
	}

	assert.Equal(t, "boom", errorMessage(500, []byte(`{"message":"boom","error":"e"}`)))
	assert.Equal(t, "e", errorMessage(500, []byte(`{"error":"e"}`)))
	assert.Equal(t, "request failed with status 503", errorMessage(503, []byte(`{}`)))
	assert.Equal(t, "request failed with status 503", errorMessage(503, []byte{0xff, 0xfe}))
	assert.Len(t, errorMessage(500, long), maxErrorBodyLen)

	tests := []struct {
		name string
		body string
	}{
		{name: "two byte runes", body: strings.Repeat("é", maxErrorBodyLen)},
		{name: "three byte runes", body: strings.Repeat("€", maxErrorBodyLen)},
		{name: "offset multibyte", body: "x" + strings.Repeat("😀", maxErrorBodyLen)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := errorMessage(502, []byte(tt.body))
			assert.True(t, utf8.ValidString(msg))
			assert.LessOrEqual(t, len(msg), maxErrorBodyLen)
			assert.Greater(t, len(msg), maxErrorBodyLen-utf8.UTFMax)
			assert.True(t, strings.HasPrefix(tt.body, msg))
		})
	}
}
