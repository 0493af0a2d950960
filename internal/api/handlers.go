package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/brandsight/rfpd/internal/config"
	apperrors "github.com/brandsight/rfpd/internal/errors"
	"github.com/brandsight/rfpd/internal/export"
	"github.com/brandsight/rfpd/internal/health"
	"github.com/brandsight/rfpd/internal/metrics"
	"github.com/brandsight/rfpd/internal/project"
)

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	store     *project.Store
	checker   *health.Checker
	metrics   *metrics.Metrics
	cfg       *config.Config
	logger    zerolog.Logger
	startTime time.Time
	renders   *export.RenderCache

	syncMu sync.Mutex
	syncs  map[string]*project.TopicSync

	paramMu sync.Mutex
	params  map[string]string // project id → last published topic URL parameter
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store *project.Store, checker *health.Checker, m *metrics.Metrics, cfg *config.Config, logger zerolog.Logger) *Handlers {
	return &Handlers{
		store:     store,
		checker:   checker,
		metrics:   m,
		cfg:       cfg,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
		renders:   export.NewRenderCache(64),
		syncs:     make(map[string]*project.TopicSync),
		params:    make(map[string]string),
	}
}

// problemFromError maps the error taxonomy onto problem responses.
func (h *Handlers) problemFromError(c *fiber.Ctx, err error, module string) error {
	switch {
	case apperrors.IsInvalidInput(err):
		if h.metrics != nil {
			h.metrics.RecordError(module, "invalid_input")
		}
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", err.Error())
	case apperrors.IsNotFound(err):
		if h.metrics != nil {
			h.metrics.RecordError(module, "not_found")
		}
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", err.Error())
	case apperrors.IsAlreadyScheduled(err):
		if h.metrics != nil {
			h.metrics.RecordError(module, "already_scheduled")
		}
		return problemResponse(c, fiber.StatusConflict,
			"already_scheduled", "Conflict", err.Error())
	default:
		if h.metrics != nil {
			h.metrics.RecordError(module, "internal")
		}
		return problemResponse(c, fiber.StatusInternalServerError,
			"internal_error", "Internal Server Error", err.Error())
	}
}

func (h *Handlers) view(p project.Project) ProjectView {
	return ProjectView{Project: p, Processing: h.store.Processing(p.ID)}
}

// Upload handles POST /api/v1/projects. The upload boundary accepts one
// file at a time; only the name is validated.
func (h *Handlers) Upload(c *fiber.Ctx) error {
	var req UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.FileName) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_file_name", "Bad Request",
			"file_name is required")
	}

	p, err := h.store.Create(req.FileName)
	if err != nil {
		if h.metrics != nil && apperrors.IsInvalidInput(err) {
			h.metrics.UploadsRejected.Inc()
		}
		return h.problemFromError(c, err, "upload")
	}

	if h.metrics != nil {
		h.metrics.ProjectsCreated.Inc()
	}
	snap, err := h.store.GetSnapshot(p.ID)
	if err != nil {
		return h.problemFromError(c, err, "upload")
	}
	return c.Status(fiber.StatusCreated).JSON(ProjectResponse{Project: h.view(snap)})
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	snaps := h.store.ListSnapshots()
	views := make([]ProjectView, len(snaps))
	for i, p := range snaps {
		views[i] = h.view(p)
	}
	return c.JSON(ProjectListResponse{Projects: views, Total: len(views)})
}

// GetProject handles GET /api/v1/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	snap, err := h.store.GetSnapshot(c.Params("id"))
	if err != nil {
		return h.problemFromError(c, err, "project")
	}
	return c.JSON(ProjectResponse{Project: h.view(snap)})
}

// DeleteProject handles DELETE /api/v1/projects/:id.
func (h *Handlers) DeleteProject(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.Delete(id); err != nil {
		return h.problemFromError(c, err, "project")
	}

	h.syncMu.Lock()
	delete(h.syncs, id)
	h.syncMu.Unlock()
	h.paramMu.Lock()
	delete(h.params, id)
	h.paramMu.Unlock()
	h.renders.Forget(id)

	if h.metrics != nil {
		h.metrics.ProjectsDeleted.Inc()
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// GetJourney handles GET /api/v1/projects/:id/journey.
func (h *Handlers) GetJourney(c *fiber.Ctx) error {
	snap, err := h.store.GetSnapshot(c.Params("id"))
	if err != nil {
		return h.problemFromError(c, err, "journey")
	}
	return c.JSON(JourneyResponse{
		Journey:  snap.Journey,
		Frontier: project.Frontier(snap.Journey),
	})
}

// ToggleSelection handles POST /api/v1/selection.
func (h *Handlers) ToggleSelection(c *fiber.Ctx) error {
	var req SelectionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.ProjectID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_project_id", "Bad Request",
			"project_id is required")
	}
	active, err := h.store.ToggleSelect(req.ProjectID)
	if err != nil {
		return h.problemFromError(c, err, "selection")
	}
	return c.JSON(SelectionResponse{ActiveProjectID: active})
}

// GetSelection handles GET /api/v1/selection.
func (h *Handlers) GetSelection(c *fiber.Ctx) error {
	return c.JSON(SelectionResponse{ActiveProjectID: h.store.Selected()})
}

// topicSync returns the project's topic synchronizer, creating it seeded
// from the external parameter on first access. The seed is read exactly
// once per project.
func (h *Handlers) topicSync(projectID, external string) (*project.TopicSync, error) {
	h.syncMu.Lock()
	defer h.syncMu.Unlock()
	if ts, ok := h.syncs[projectID]; ok {
		return ts, nil
	}
	publish := func(key string) {
		h.paramMu.Lock()
		h.params[projectID] = key
		h.paramMu.Unlock()
	}
	var opts []project.SyncOption
	if h.cfg.FollowExternalTopic {
		opts = append(opts, project.FollowExternal())
	}
	ts, err := project.NewTopicSync(h.store, projectID, external, publish, h.logger, opts...)
	if err != nil {
		return nil, err
	}
	h.syncs[projectID] = ts
	return ts, nil
}

func (h *Handlers) topicParam(projectID string) string {
	h.paramMu.Lock()
	defer h.paramMu.Unlock()
	return h.params[projectID]
}

// GetTopics handles GET /api/v1/projects/:id/topics. The optional
// ?topic= query value seeds the active topic exactly once per project.
func (h *Handlers) GetTopics(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.topicSync(id, c.Query("topic")); err != nil {
		return h.problemFromError(c, err, "topics")
	}
	snap, err := h.store.GetSnapshot(id)
	if err != nil {
		return h.problemFromError(c, err, "topics")
	}
	return c.JSON(TopicListResponse{
		Topics:     snap.Topics,
		ActiveKey:  snap.ActiveTopicKey,
		TopicParam: h.topicParam(id),
	})
}

// CreateTopic handles POST /api/v1/projects/:id/topics.
func (h *Handlers) CreateTopic(c *fiber.Ctx) error {
	var req CreateTopicRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	id := c.Params("id")
	t, err := h.store.CreateTopic(id, req.Name)
	if err != nil {
		return h.problemFromError(c, err, "topics")
	}
	if ts, serr := h.topicSync(id, t.Key); serr == nil {
		// Mirror the new active topic to the URL parameter.
		if _, serr = ts.Set(t.Key); serr != nil {
			return h.problemFromError(c, serr, "topics")
		}
	}
	if h.metrics != nil {
		h.metrics.TopicsCreated.Inc()
	}
	active, err := h.store.ActiveTopic(id)
	if err != nil {
		return h.problemFromError(c, err, "topics")
	}
	return c.Status(fiber.StatusCreated).JSON(TopicResponse{Topic: t, ActiveKey: active})
}

// PutActiveTopic handles PUT /api/v1/projects/:id/topics/active?topic=.
// An in-app topic switch: applied and published outward.
func (h *Handlers) PutActiveTopic(c *fiber.Ctx) error {
	id := c.Params("id")
	ts, err := h.topicSync(id, c.Query("topic"))
	if err != nil {
		return h.problemFromError(c, err, "topics")
	}
	resolved, err := ts.Set(c.Query("topic"))
	if err != nil {
		return h.problemFromError(c, err, "topics")
	}
	return c.JSON(TopicListResponse{ActiveKey: resolved, TopicParam: h.topicParam(id)})
}

// PutTopicParam handles PUT /api/v1/projects/:id/topics/param?topic=.
// An external navigation change arriving after the seed; ignored unless
// follow-external mode is enabled.
func (h *Handlers) PutTopicParam(c *fiber.Ctx) error {
	id := c.Params("id")
	ts, err := h.topicSync(id, c.Query("topic"))
	if err != nil {
		return h.problemFromError(c, err, "topics")
	}
	active, err := ts.Apply(c.Query("topic"))
	if err != nil {
		return h.problemFromError(c, err, "topics")
	}
	return c.JSON(TopicListResponse{ActiveKey: active, TopicParam: h.topicParam(id)})
}

// GetMessages handles GET .../topics/:key/messages.
func (h *Handlers) GetMessages(c *fiber.Ctx) error {
	snap, err := h.store.GetSnapshot(c.Params("id"))
	if err != nil {
		return h.problemFromError(c, err, "chat")
	}
	t := snap.Topic(c.Params("key"))
	if t == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found",
			"topic not found: "+c.Params("key"))
	}
	return c.JSON(ThreadResponse{Messages: t.Thread})
}

// PostMessage handles POST .../topics/:key/messages. The user message is
// appended synchronously; the assistant reply arrives after the fixed
// delay.
func (h *Handlers) PostMessage(c *fiber.Ctx) error {
	var req PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if err := h.store.PostMessage(c.Params("id"), c.Params("key"), req.Text); err != nil {
		return h.problemFromError(c, err, "chat")
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// DownloadSummary handles GET /api/v1/projects/:id/summary?format=pdf|doc.
func (h *Handlers) DownloadSummary(c *fiber.Ctx) error {
	format, err := export.ParseFormat(c.Query("format", string(export.FormatPDF)))
	if err != nil {
		return h.problemFromError(c, err, "export")
	}
	snap, err := h.store.GetSnapshot(c.Params("id"))
	if err != nil {
		return h.problemFromError(c, err, "export")
	}

	if h.metrics != nil {
		h.metrics.SummaryDownloads.WithLabelValues(string(format)).Inc()
	}
	c.Set(fiber.HeaderContentType, export.ContentType(format))
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+export.FileName(snap.Title, format)+`"`)
	return c.Send(h.renders.Rendered(&snap, format))
}

// GetConfig handles GET /api/v1/config.
func (h *Handlers) GetConfig(c *fiber.Ctx) error {
	cfg := h.cfg
	return c.JSON(ConfigResponse{
		Environment:         cfg.Environment,
		LogLevel:            cfg.LogLevel,
		ListenAddr:          cfg.ListenAddr,
		ProcessingDelay:     cfg.ProcessingDelay.String(),
		ReplyDelay:          cfg.ReplyDelay.String(),
		FollowExternalTopic: cfg.FollowExternalTopic,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	})
}

// PatchConfig handles PATCH /api/v1/config.
func (h *Handlers) PatchConfig(c *fiber.Ctx) error {
	var req ConfigPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.LogLevel != nil {
		h.cfg.LogLevel = *req.LogLevel
		if level, err := zerolog.ParseLevel(*req.LogLevel); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}
	if req.FollowExternalTopic != nil {
		h.cfg.FollowExternalTopic = *req.FollowExternalTopic
	}
	return h.GetConfig(c)
}

// Stats handles GET /api/v1/metrics/summary.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	resp := StatsResponse{MessagesByRole: make(map[string]int)}
	for _, p := range h.store.ListSnapshots() {
		resp.TotalProjects++
		if h.store.Processing(p.ID) {
			resp.Processing++
		}
		for _, t := range p.Topics {
			resp.TotalTopics++
			for _, m := range t.Thread {
				resp.TotalMessages++
				resp.MessagesByRole[string(m.Role)]++
			}
		}
	}
	return c.JSON(resp)
}

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	checks := make(map[string]string, len(results))
	overall := "ok"
	for name, status := range results {
		checks[name] = string(status)
		if status == health.StatusDown {
			overall = "degraded"
		}
	}

	return c.JSON(HealthDetailResponse{
		Status: overall,
		Checks: checks,
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
