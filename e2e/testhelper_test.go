package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelworks/mediagen/internal/auth"
	"github.com/reelworks/mediagen/internal/client"
	"github.com/reelworks/mediagen/internal/config"
	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/handler"
	"github.com/reelworks/mediagen/internal/middleware"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/service"
	"github.com/reelworks/mediagen/internal/store"
)

const testInternalSecret = "test-secret-for-e2e"

// capturingDispatcher records hand-offs instead of running a worker, so
// tests can play the worker's webhooks back by hand.
type capturingDispatcher struct {
	mu       sync.Mutex
	messages []*dispatch.TaskMessage
	failWith error
}

func (d *capturingDispatcher) Execute(ctx context.Context, msg *dispatch.TaskMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return d.failWith
	}
	d.messages = append(d.messages, msg)
	return nil
}

func (d *capturingDispatcher) last(t *testing.T) *dispatch.TaskMessage {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.messages) == 0 {
		t.Fatal("no task was dispatched")
	}
	return d.messages[len(d.messages)-1]
}

func (d *capturingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

// testApp holds all components needed for testing
type testApp struct {
	app        *fiber.App
	dispatcher *capturingDispatcher
	storage    *client.MemoryStorage
}

// setupApp creates a Fiber app identical to main.go but on in-memory
// backends: no Redis, no object store, no worker process.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		Internal: config.InternalConfig{
			Secret:          testInternalSecret,
			CallbackBaseURL: "http://localhost:8000",
		},
		Trailer: config.TrailerConfig{
			DefaultDurationSec: 60,
			DefaultStyle:       "cinematic",
			AspectRatios:       []string{"16:9", "9:16"},
		},
		Clips: config.ClipsConfig{
			DefaultCount:   3,
			MinDurationSec: 5,
			MaxDurationSec: 60,
		},
	}

	jobStore := store.NewMemoryStore()
	storage := client.NewMemoryStorage()
	dispatcher := &capturingDispatcher{}
	validate := validator.New()

	trailerService := service.NewTrailerService(jobStore, dispatcher, storage, cfg)
	clipService := service.NewClipExtractorService(jobStore, dispatcher, cfg)
	videoQcService := service.NewVideoQcService(jobStore, dispatcher, storage, cfg)

	trailerHandler := handler.NewTrailerHandler(trailerService, validate)
	clipHandler := handler.NewClipExtractorHandler(clipService, storage, validate)
	videoQcHandler := handler.NewVideoQcHandler(videoQcService, validate)
	progressHandler := handler.NewProgressHandler(validate,
		trailerService.Flow(), clipService.Flow(), videoQcService.Flow())

	app := fiber.New()

	trailer := app.Group("/trailer")
	trailer.Post("/project", trailerHandler.CreateProject)
	trailer.Post("/generate/:projectId", trailerHandler.Generate)
	trailer.Post("/draft-narrative", trailerHandler.DraftNarrative)
	trailer.Post("/approve-narrative", trailerHandler.ApproveNarrative)
	trailer.Get("/narrative/:projectId", trailerHandler.Narrative)
	trailer.Get("/narrative-status/:projectId", trailerHandler.NarrativeStatus)
	trailer.Get("/status/:projectId", trailerHandler.Status)
	trailer.Get("/project/:projectId", trailerHandler.Project)
	trailer.Get("/projects", trailerHandler.List)
	trailer.Post("/progress/:projectId",
		middleware.InternalAuth(cfg.Internal.Secret, model.KindTrailer),
		progressHandler.Handle(model.KindTrailer))

	clips := app.Group("/clip-extractor")
	clips.Post("/project", clipHandler.CreateProject)
	clips.Post("/extract/:projectId", clipHandler.Extract)
	clips.Get("/status/:projectId", clipHandler.Status)
	clips.Get("/project/:projectId", clipHandler.Project)
	clips.Get("/projects", clipHandler.List)
	clips.Get("/stream/:projectId/:fileName", clipHandler.Stream)
	clips.Post("/progress/:projectId",
		middleware.InternalAuth(cfg.Internal.Secret, model.KindClipExtractor),
		progressHandler.Handle(model.KindClipExtractor))

	videoQc := app.Group("/video-qc")
	videoQc.Post("/project", videoQcHandler.CreateProject)
	videoQc.Post("/initiate/:projectId", videoQcHandler.Initiate)
	videoQc.Get("/status/:projectId", videoQcHandler.Status)
	videoQc.Get("/project/:projectId", videoQcHandler.Project)
	videoQc.Get("/projects", videoQcHandler.List)
	videoQc.Post("/progress/:projectId",
		middleware.InternalAuth(cfg.Internal.Secret, model.KindVideoQc),
		progressHandler.Handle(model.KindVideoQc))

	return &testApp{app: app, dispatcher: dispatcher, storage: storage}
}

// callbackToken mints the token a worker would carry for one job.
func callbackToken(t *testing.T, kind, projectID string) string {
	t.Helper()
	token, err := auth.MintCallbackToken(testInternalSecret, kind, projectID)
	if err != nil {
		t.Fatalf("failed to mint callback token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// postProgress plays one worker webhook back at the API.
func postProgress(t *testing.T, ta *testApp, kind, projectID, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(ta.app, http.MethodPost, "/"+kind+"/progress/"+projectID, body, map[string]string{
		"Authorization": "Bearer " + callbackToken(t, kind, projectID),
	})
	if err != nil {
		t.Fatalf("progress request failed: %v", err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
