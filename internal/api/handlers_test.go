package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandsight/rfpd/internal/config"
	"github.com/brandsight/rfpd/internal/health"
	"github.com/brandsight/rfpd/internal/metrics"
	"github.com/brandsight/rfpd/internal/project"
	"github.com/brandsight/rfpd/internal/scheduler"
)

type testEnv struct {
	app   *fiber.App
	store *project.Store
	cfg   *config.Config
}

// newTestEnv builds a full server with a real scheduler. Delays are kept
// long so pending states stay observable unless a test shrinks them.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Environment:     "test",
		LogLevel:        "info",
		ListenAddr:      ":0",
		ProcessingDelay: time.Minute,
		ReplyDelay:      time.Minute,
	}
	for _, m := range mutate {
		m(cfg)
	}

	logger := zerolog.Nop()
	store := project.NewStore(logger)
	sched := scheduler.New(scheduler.Config{
		ProcessingDelay: cfg.ProcessingDelay,
		ReplyDelay:      cfg.ReplyDelay,
	}, logger)
	t.Cleanup(sched.Stop)
	store.SetScheduler(sched)

	checker := health.NewChecker(logger)
	checker.Register("store", func(ctx context.Context) health.Status {
		return health.StatusOK
	})

	h := NewHandlers(store, checker, metrics.New(), cfg, logger)
	srv := NewServer(ServerConfig{ListenAddr: cfg.ListenAddr}, h, nil, logger)
	return &testEnv{app: srv.App(), store: store, cfg: cfg}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (e *testEnv) upload(t *testing.T, fileName string) ProjectView {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/api/v1/projects", UploadRequest{FileName: fileName})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var pr ProjectResponse
	decode(t, resp, &pr)
	return pr.Project
}

func TestUpload(t *testing.T) {
	e := newTestEnv(t)

	p := e.upload(t, "Transition_Services_Agreement.pdf")
	assert.Equal(t, "Transition Services Agreement", p.Title)
	assert.True(t, p.Processing)
	assert.Len(t, p.Journey, 10)
	assert.Len(t, p.Topics, 3)
	assert.Equal(t, "transition", p.ActiveTopicKey)
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	e := newTestEnv(t)

	resp := e.request(t, http.MethodPost, "/api/v1/projects", UploadRequest{FileName: "proposal.docx"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var pd ProblemDetail
	decode(t, resp, &pd)
	assert.Equal(t, "invalid_input", pd.Type)
	assert.Contains(t, pd.Detail, "proposal.docx")
	assert.Equal(t, 0, e.store.Len())
}

func TestUpload_MissingFileName(t *testing.T) {
	e := newTestEnv(t)
	resp := e.request(t, http.MethodPost, "/api/v1/projects", UploadRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListProjects_NewestFirst(t *testing.T) {
	e := newTestEnv(t)
	first := e.upload(t, "first.pdf")
	second := e.upload(t, "second.pdf")

	resp := e.request(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lr ProjectListResponse
	decode(t, resp, &lr)
	require.Equal(t, 2, lr.Total)
	assert.Equal(t, second.ID, lr.Projects[0].ID)
	assert.Equal(t, first.ID, lr.Projects[1].ID)
}

func TestGetProject_NotFound(t *testing.T) {
	e := newTestEnv(t)
	resp := e.request(t, http.MethodGet, "/api/v1/projects/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var pd ProblemDetail
	decode(t, resp, &pd)
	assert.Equal(t, "not_found", pd.Type)
}

func TestDeleteProject(t *testing.T) {
	e := newTestEnv(t)
	p := e.upload(t, "cloud.pdf")

	resp := e.request(t, http.MethodDelete, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	assert.False(t, e.store.Processing(p.ID))
}

func TestProcessingCompletes(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.ProcessingDelay = 10 * time.Millisecond })
	p := e.upload(t, "cloud.pdf")

	require.Eventually(t, func() bool { return !e.store.Processing(p.ID) }, time.Second, 5*time.Millisecond)

	resp := e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/journey", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jr JourneyResponse
	decode(t, resp, &jr)
	assert.Equal(t, 1, jr.Frontier)
	assert.Equal(t, project.StageCompleted, jr.Journey[0].Status)
	assert.Equal(t, project.StageInProgress, jr.Journey[1].Status)

	var pr ProjectResponse
	resp = e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID, nil)
	decode(t, resp, &pr)
	assert.False(t, pr.Project.Processing)
	require.NotNil(t, pr.Project.Analysis)
	assert.Equal(t, 320, pr.Project.Analysis.RolesAndEfforts["Developer"])
}

func TestSelectionToggle(t *testing.T) {
	e := newTestEnv(t)
	p := e.upload(t, "cloud.pdf")

	var sr SelectionResponse
	resp := e.request(t, http.MethodPost, "/api/v1/selection", SelectionRequest{ProjectID: p.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &sr)
	assert.Equal(t, p.ID, sr.ActiveProjectID)

	resp = e.request(t, http.MethodPost, "/api/v1/selection", SelectionRequest{ProjectID: p.ID})
	decode(t, resp, &sr)
	assert.Equal(t, "", sr.ActiveProjectID)

	resp = e.request(t, http.MethodGet, "/api/v1/selection", nil)
	decode(t, resp, &sr)
	assert.Equal(t, "", sr.ActiveProjectID)
}

func TestGetTopics_SeedsFromQueryOnce(t *testing.T) {
	e := newTestEnv(t)
	p := e.upload(t, "cloud.pdf")

	var tl TopicListResponse
	resp := e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/topics?topic=governance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &tl)
	assert.Equal(t, "governance", tl.ActiveKey)
	assert.Equal(t, "governance", tl.TopicParam)
	assert.Len(t, tl.Topics, 3)

	// A second query value does not re-seed.
	resp = e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/topics?topic=continuity", nil)
	decode(t, resp, &tl)
	assert.Equal(t, "governance", tl.ActiveKey)
}

func TestCreateTopic(t *testing.T) {
	e := newTestEnv(t)
	p := e.upload(t, "cloud.pdf")

	var tr TopicResponse
	resp := e.request(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/topics", CreateTopicRequest{Name: "Pricing Model"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &tr)
	assert.Equal(t, "pricing-model", tr.Topic.Key)
	assert.Equal(t, "pricing-model", tr.ActiveKey)
	require.Len(t, tr.Topic.Thread, 1)
	assert.Equal(t, project.RoleAssistant, tr.Topic.Thread[0].Role)

	// Duplicate names select the existing topic rather than adding one.
	resp = e.request(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/topics", CreateTopicRequest{Name: "pricing   model"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &tr)
	assert.Equal(t, "pricing-model", tr.Topic.Key)

	var tl TopicListResponse
	resp = e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/topics", nil)
	decode(t, resp, &tl)
	assert.Len(t, tl.Topics, 4)
}

func TestPutActiveTopic(t *testing.T) {
	e := newTestEnv(t)
	p := e.upload(t, "cloud.pdf")

	var tl TopicListResponse
	resp := e.request(t, http.MethodPut, "/api/v1/projects/"+p.ID+"/topics/active?topic=continuity", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &tl)
	assert.Equal(t, "continuity", tl.ActiveKey)
	assert.Equal(t, "continuity", tl.TopicParam)

	// Unknown keys resolve to the default topic.
	resp = e.request(t, http.MethodPut, "/api/v1/projects/"+p.ID+"/topics/active?topic=bogus", nil)
	decode(t, resp, &tl)
	assert.Equal(t, project.DefaultTopicKey, tl.ActiveKey)
}

func TestPutTopicParam_IgnoredByDefault(t *testing.T) {
	e := newTestEnv(t)
	p := e.upload(t, "cloud.pdf")

	// Seed on first access, then simulate an external parameter change.
	resp := e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/topics?topic=governance", nil)
	resp.Body.Close()

	var tl TopicListResponse
	resp = e.request(t, http.MethodPut, "/api/v1/projects/"+p.ID+"/topics/param?topic=continuity", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &tl)
	assert.Equal(t, "governance", tl.ActiveKey)
}

func TestPutTopicParam_FollowExternal(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.FollowExternalTopic = true })
	p := e.upload(t, "cloud.pdf")

	resp := e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/topics?topic=governance", nil)
	resp.Body.Close()

	var tl TopicListResponse
	resp = e.request(t, http.MethodPut, "/api/v1/projects/"+p.ID+"/topics/param?topic=continuity", nil)
	decode(t, resp, &tl)
	assert.Equal(t, "continuity", tl.ActiveKey)
}

func TestMessages(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.ReplyDelay = 10 * time.Millisecond })
	p := e.upload(t, "cloud.pdf")

	base := fmt.Sprintf("/api/v1/projects/%s/topics/governance/messages", p.ID)

	resp := e.request(t, http.MethodPost, base, PostMessageRequest{Text: "add a steering committee"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	var th ThreadResponse
	resp = e.request(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &th)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, project.RoleUser, th.Messages[1].Role)

	require.Eventually(t, func() bool {
		resp := e.request(t, http.MethodGet, base, nil)
		var th ThreadResponse
		decode(t, resp, &th)
		return len(th.Messages) == 3
	}, time.Second, 10*time.Millisecond)

	resp = e.request(t, http.MethodGet, base, nil)
	decode(t, resp, &th)
	assert.Equal(t, "Acknowledged. I'll refine the Governance section accordingly.", th.Messages[2].Content)
}

func TestPostMessage_Validation(t *testing.T) {
	e := newTestEnv(t)
	p := e.upload(t, "cloud.pdf")

	resp := e.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/projects/%s/topics/governance/messages", p.ID),
		PostMessageRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = e.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/projects/%s/topics/missing/messages", p.ID),
		PostMessageRequest{Text: "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDownloadSummary(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.ProcessingDelay = 10 * time.Millisecond })
	p := e.upload(t, "Enterprise_Cloud_Migration.pdf")
	require.Eventually(t, func() bool { return !e.store.Processing(p.ID) }, time.Second, 5*time.Millisecond)

	resp := e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/summary?format=pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `attachment; filename="Enterprise_Cloud_Migration.pdf"`,
		resp.Header.Get(fiber.HeaderContentDisposition))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, string(body), "Effort Summary")

	resp = e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/summary?format=doc", nil)
	assert.Equal(t, "application/msword", resp.Header.Get(fiber.HeaderContentType))
	resp.Body.Close()

	resp = e.request(t, http.MethodGet, "/api/v1/projects/"+p.ID+"/summary?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestConfigEndpoints(t *testing.T) {
	e := newTestEnv(t)

	var cr ConfigResponse
	resp := e.request(t, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &cr)
	assert.Equal(t, "test", cr.Environment)
	assert.False(t, cr.FollowExternalTopic)

	follow := true
	resp = e.request(t, http.MethodPatch, "/api/v1/config", ConfigPatchRequest{FollowExternalTopic: &follow})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &cr)
	assert.True(t, cr.FollowExternalTopic)
	assert.True(t, e.cfg.FollowExternalTopic)
}

func TestStats(t *testing.T) {
	e := newTestEnv(t)
	p := e.upload(t, "cloud.pdf")
	resp := e.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/projects/%s/topics/governance/messages", p.ID),
		PostMessageRequest{Text: "hello"})
	resp.Body.Close()

	var st StatsResponse
	resp = e.request(t, http.MethodGet, "/api/v1/metrics/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &st)
	assert.Equal(t, 1, st.TotalProjects)
	assert.Equal(t, 1, st.Processing)
	assert.Equal(t, 3, st.TotalTopics)
	assert.Equal(t, 4, st.TotalMessages)
	assert.Equal(t, 1, st.MessagesByRole["user"])
	assert.Equal(t, 3, st.MessagesByRole["assistant"])
}

func TestProbesAndHealth(t *testing.T) {
	e := newTestEnv(t)

	resp := e.request(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.request(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var hd HealthDetailResponse
	resp = e.request(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &hd)
	assert.Equal(t, "ok", hd.Status)
	assert.Equal(t, "ok", hd.Checks["store"])
}
