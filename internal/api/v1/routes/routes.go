// Package routes defines the webhook paths used by the client and served by
// the dev webhook simulator.
package routes

import (
	"fmt"
	"net/url"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meltingprovince/virtualset/internal/api/v1/handlers"
)

// DefaultPort is the default port of the dev webhook server
const DefaultPort = "8080"

// DefaultDevBaseURL is the base URL of a locally running dev webhook server
var DefaultDevBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// Paths relative to the webhook base URL
const (
	BriefSubmitPath   = "/brief-submit"
	BriefRevisionPath = "/brief-revision"
	JobStatusPath     = "/job-status/:id"
	JobResultPath     = "/job-result/:id"
	HealthCheckPath   = "/health"
)

// Route names
const (
	HealthCheck    = "HealthCheck"
	GetJobStatus   = "GetJobStatus"
	GetJobResult   = "GetJobResult"
	SubmitBrief    = "SubmitBrief"
	SubmitRevision = "SubmitRevision"
)

// RegisterRoutes wires the webhook endpoints onto app.
//
// GET routes come before POST routes; param routes go last within a method.
func RegisterRoutes(app *fiber.App, webhookHandler *handlers.WebhookHandler) {
	app.Get(HealthCheckPath, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}).Name(HealthCheck)

	app.Get(JobStatusPath, webhookHandler.GetJobStatus).Name(GetJobStatus)
	app.Get(JobResultPath, webhookHandler.GetJobResult).Name(GetJobResult)

	app.Post(BriefRevisionPath, webhookHandler.SubmitRevision).Name(SubmitRevision)
	app.Post(BriefSubmitPath, webhookHandler.SubmitBrief).Name(SubmitBrief)
}

// BriefSubmitURL returns the brief submission path
func BriefSubmitURL() string {
	return BriefSubmitPath
}

// BriefRevisionURL returns the revision submission path
func BriefRevisionURL() string {
	return BriefRevisionPath
}

// JobStatusURL returns the status path of a job
func JobStatusURL(jobID string) string {
	return "/job-status/" + url.PathEscape(jobID)
}

// JobResultURL returns the result path of a job
func JobResultURL(jobID string) string {
	return "/job-result/" + url.PathEscape(jobID)
}

// HealthCheckURL returns the health check path
func HealthCheckURL() string {
	return HealthCheckPath
}
