// Package handlers serves the generation webhook endpoints on top of the
// in-memory simulator.
package handlers

import (
	"errors"
	"strings"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meltingprovince/virtualset/internal/logger"
	"github.com/meltingprovince/virtualset/internal/simulator"
	"github.com/meltingprovince/virtualset/internal/types"
)

// WebhookHandler handles brief, revision, status and result requests
type WebhookHandler struct {
	sim         *simulator.Simulator
	requireAuth bool
}

// NewWebhookHandler creates a handler backed by sim. With requireAuth set,
// requests without a token are rejected.
func NewWebhookHandler(sim *simulator.Simulator, requireAuth bool) *WebhookHandler {
	return &WebhookHandler{
		sim:         sim,
		requireAuth: requireAuth,
	}
}

// authorized reports whether the request may proceed. The body token is
// used when the header is absent.
func (h *WebhookHandler) authorized(c *fiber.Ctx, bodyToken string) bool {
	if !h.requireAuth {
		return true
	}
	token := strings.TrimSpace(c.Get(types.AuthHeader))
	if token == "" {
		token = strings.TrimSpace(bodyToken)
	}
	return token != ""
}

// SubmitBrief queues a job for the posted brief
func (h *WebhookHandler) SubmitBrief(c *fiber.Ctx) error {
	var req types.SubmitBriefRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(MsgInvalidBody))
	}

	if !h.authorized(c, req.AuthToken) {
		return c.Status(fiber.StatusUnauthorized).JSON(errUnauthorized())
	}

	if err := req.Brief.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}

	outputType := req.OutputType
	if outputType == "" {
		outputType = types.OutputImages
	}
	if !outputType.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("invalid outputType: " + string(outputType)))
	}

	job := h.sim.Submit(req.Brief, outputType)
	logger.InfoWithFields("Brief accepted", map[string]interface{}{
		"job_id":    job.ID,
		"show_type": req.Brief.ShowType,
		"elements":  len(req.Brief.Elements),
	})

	return c.Status(fiber.StatusOK).JSON(types.JobHandle{JobID: job.ID, Status: job.Status})
}

// SubmitRevision queues a job revising an earlier one
func (h *WebhookHandler) SubmitRevision(c *fiber.Ctx) error {
	var req types.SubmitRevisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(MsgInvalidBody))
	}

	if !h.authorized(c, req.AuthToken) {
		return c.Status(fiber.StatusUnauthorized).JSON(errUnauthorized())
	}

	if strings.TrimSpace(req.OriginalJobID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(MsgMissingOriginal))
	}

	revision := types.Revision{Fixes: req.Fixes, Notes: req.Notes}
	if err := revision.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}

	job, err := h.sim.Revise(req.OriginalJobID, req.Fixes, req.Notes)
	if err != nil {
		if errors.Is(err, simulator.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(errNotFound("original " + MsgJobNotFound))
		}
		return err
	}
	logger.InfoWithFields("Revision accepted", map[string]interface{}{
		"job_id":          job.ID,
		"original_job_id": req.OriginalJobID,
		"fixes":           len(req.Fixes),
	})

	return c.Status(fiber.StatusOK).JSON(types.JobHandle{JobID: job.ID, Status: job.Status})
}

// GetJobStatus returns the status of a specific job, advancing it one step
func (h *WebhookHandler) GetJobStatus(c *fiber.Ctx) error {
	if !h.authorized(c, "") {
		return c.Status(fiber.StatusUnauthorized).JSON(errUnauthorized())
	}

	jobID := c.Params("id")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(MsgMissingJobID))
	}

	status, err := h.sim.Poll(jobID)
	if err != nil {
		if errors.Is(err, simulator.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(errNotFound(MsgJobNotFound))
		}
		return err
	}

	return c.JSON(status)
}

// GetJobResult returns the outputs of a completed job
func (h *WebhookHandler) GetJobResult(c *fiber.Ctx) error {
	if !h.authorized(c, "") {
		return c.Status(fiber.StatusUnauthorized).JSON(errUnauthorized())
	}

	jobID := c.Params("id")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(MsgMissingJobID))
	}

	results, err := h.sim.Results(jobID)
	switch {
	case errors.Is(err, simulator.ErrJobNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errNotFound(MsgJobNotFound))
	case errors.Is(err, simulator.ErrJobNotComplete):
		return c.Status(fiber.StatusConflict).JSON(errNotComplete(MsgJobNotComplete))
	case err != nil:
		return err
	}

	return c.JSON(results)
}
