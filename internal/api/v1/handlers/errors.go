package handlers

import (
	"github.com/meltingprovince/virtualset/internal/types"
)

// Error codes returned in the error field of webhook error bodies
const (
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeNotComplete  = "not_complete"
)

// Error messages
const (
	MsgInvalidBody     = "Invalid request body"
	MsgMissingToken    = "auth token is required"
	MsgMissingJobID    = "job id is required"
	MsgMissingOriginal = "originalJobId is required"
	MsgJobNotFound     = "job not found"
	MsgJobNotComplete  = "job not complete"
)

func errInvalidInput(msg string) types.ErrorResponse {
	return types.ErrorResponse{Error: ErrCodeInvalidInput, Message: msg}
}

func errUnauthorized() types.ErrorResponse {
	return types.ErrorResponse{Error: ErrCodeUnauthorized, Message: MsgMissingToken}
}

func errNotFound(msg string) types.ErrorResponse {
	return types.ErrorResponse{Error: ErrCodeNotFound, Message: msg}
}

func errNotComplete(msg string) types.ErrorResponse {
	return types.ErrorResponse{Error: ErrCodeNotComplete, Message: msg}
}
