// Package api exposes the lifecycle core over a management-style HTTP API.
package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/brandsight/rfpd/internal/project"
)

// --- Request DTOs ---

// UploadRequest is the payload for POST /api/v1/projects. The file name
// alone drives validation and title derivation; no content is parsed.
type UploadRequest struct {
	FileName string `json:"file_name"`
}

// SelectionRequest is the payload for POST /api/v1/selection.
type SelectionRequest struct {
	ProjectID string `json:"project_id"`
}

// CreateTopicRequest is the payload for POST /api/v1/projects/:id/topics.
type CreateTopicRequest struct {
	Name string `json:"name"`
}

// PostMessageRequest is the payload for POST .../topics/:key/messages.
type PostMessageRequest struct {
	Text string `json:"text"`
}

// ConfigPatchRequest is the payload for PATCH /api/v1/config.
type ConfigPatchRequest struct {
	LogLevel            *string `json:"log_level,omitempty"`
	FollowExternalTopic *bool   `json:"follow_external_topic,omitempty"`
}

// --- Response DTOs ---

// ProjectView wraps a project snapshot with its processing indicator.
type ProjectView struct {
	project.Project
	Processing bool `json:"processing"`
}

// ProjectResponse wraps one project.
type ProjectResponse struct {
	Project ProjectView `json:"project"`
}

// ProjectListResponse wraps the ordered project list.
type ProjectListResponse struct {
	Projects []ProjectView `json:"projects"`
	Total    int           `json:"total"`
}

// JourneyResponse is the response for GET .../journey.
type JourneyResponse struct {
	Journey  []project.JourneyBlock `json:"journey"`
	Frontier int                    `json:"frontier"`
}

// SelectionResponse is the response for selection endpoints.
type SelectionResponse struct {
	ActiveProjectID string `json:"active_project_id"`
}

// TopicListResponse wraps a project's topics and active selection.
// TopicParam mirrors the shareable external URL parameter.
type TopicListResponse struct {
	Topics     []*project.Topic `json:"topics"`
	ActiveKey  string           `json:"active_key"`
	TopicParam string           `json:"topic_param"`
}

// TopicResponse wraps a single topic.
type TopicResponse struct {
	Topic     *project.Topic `json:"topic"`
	ActiveKey string         `json:"active_key"`
}

// ThreadResponse wraps one topic's ordered messages.
type ThreadResponse struct {
	Messages []project.Message `json:"messages"`
}

// ConfigResponse is the response for GET /api/v1/config.
type ConfigResponse struct {
	Environment         string `json:"environment"`
	LogLevel            string `json:"log_level"`
	ListenAddr          string `json:"listen_addr"`
	ProcessingDelay     string `json:"processing_delay"`
	ReplyDelay          string `json:"reply_delay"`
	FollowExternalTopic bool   `json:"follow_external_topic"`
	RateLimitRPS        int    `json:"rate_limit_rps"`
	RateLimitBurst      int    `json:"rate_limit_burst"`
}

// StatsResponse is the response for GET /api/v1/metrics/summary.
type StatsResponse struct {
	TotalProjects  int            `json:"total_projects"`
	Processing     int            `json:"processing"`
	TotalTopics    int            `json:"total_topics"`
	TotalMessages  int            `json:"total_messages"`
	MessagesByRole map[string]int `json:"messages_by_role"`
}

// HealthDetailResponse is the response for GET /api/v1/health.
type HealthDetailResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Uptime string            `json:"uptime"`
}

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func problemResponse(c *fiber.Ctx, status int, problemType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
