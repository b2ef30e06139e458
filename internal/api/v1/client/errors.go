package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/meltingprovince/virtualset/internal/types"
)

// maxErrorBodyLen bounds how much of a plain text error body is surfaced
const maxErrorBodyLen = 512

// RequestError carries the details shared by every webhook failure. Code is
// zero when the request never produced a response.
type RequestError struct {
	JobID   string // Job the request referred to, if any
	Code    int    // HTTP status code
	Message string // Server provided or generic message
	Err     error  // Underlying transport or decoding error
}

// StatusCode returns the HTTP status code, zero for transport failures
func (e *RequestError) StatusCode() int {
	return e.Code
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) describe(op string) string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.JobID != "" {
		return fmt.Sprintf("%s for job %s: %s", op, e.JobID, msg)
	}
	return fmt.Sprintf("%s: %s", op, msg)
}

// SubmissionError is returned when a brief is rejected or cannot be sent
type SubmissionError struct{ RequestError }

func (e *SubmissionError) Error() string { return e.describe("failed to submit brief") }

// StatusQueryError is returned when a status poll fails
type StatusQueryError struct{ RequestError }

func (e *StatusQueryError) Error() string { return e.describe("failed to check status") }

// ResultsFetchError is returned when the outputs of a completed job cannot be fetched
type ResultsFetchError struct{ RequestError }

func (e *ResultsFetchError) Error() string { return e.describe("failed to get results") }

// RevisionError is returned when a revision request is rejected or cannot be sent
type RevisionError struct{ RequestError }

func (e *RevisionError) Error() string { return e.describe("failed to submit revision") }

// ErrorCode returns the HTTP status code carried by err, or zero
func ErrorCode(err error) int {
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode()
	}
	return 0
}

// toRequestError converts whatever doRequest returned into the shared shape
func toRequestError(jobID string, err error) RequestError {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return RequestError{JobID: jobID, Code: httpErr.code, Message: httpErr.message, Err: err}
	}
	return RequestError{JobID: jobID, Err: err}
}

// httpError is a non-2xx response
type httpError struct {
	code    int
	message string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.message)
}

// errorMessage extracts the human readable message of a non-2xx body: the
// JSON message/error field, else the body text, else a generic message.
func errorMessage(code int, body []byte) string {
	generic := fmt.Sprintf("request failed with status %d", code)

	var errResp types.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Message != "":
			return errResp.Message
		case errResp.Error != "":
			return errResp.Error
		default:
			return generic
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" || !utf8.ValidString(text) {
		return generic
	}
	if len(text) > maxErrorBodyLen {
		n := maxErrorBodyLen
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		text = text[:n]
	}
	return text
}
