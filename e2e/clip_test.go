package e2e

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func createClipProject(t *testing.T, ta *testApp, projectID string) {
	t.Helper()
	body := `{"projectId":"` + projectID + `","title":"Match highlights","sourceUrl":"https://example.com/match.mp4"}`
	resp, err := doRequest(ta.app, http.MethodPost, "/clip-extractor/project", body, nil)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
}

func TestClipCreateConflict(t *testing.T) {
	ta := setupApp(t)
	createClipProject(t, ta, "clips-1")

	// Clip projects are not idempotent on create: same id conflicts.
	body := `{"projectId":"clips-1","sourceUrl":"https://example.com/match.mp4"}`
	resp, err := doRequest(ta.app, http.MethodPost, "/clip-extractor/project", body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)
}

func TestClipExtractionHappyPath(t *testing.T) {
	ta := setupApp(t)
	createClipProject(t, ta, "clips-1")

	resp, err := doRequest(ta.app, http.MethodPost, "/clip-extractor/extract/clips-1", "", nil)
	if err != nil {
		t.Fatalf("extract request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	msg := ta.dispatcher.last(t)
	if msg.Kind != "clip-extractor" {
		t.Errorf("task kind = %q", msg.Kind)
	}

	// Duplicate progress delivery is harmless
	for i := 0; i < 2; i++ {
		resp = postProgress(t, ta, "clip-extractor", "clips-1", `{"status":"processing","progress":40,"progressStage":"extracting_clips"}`)
		assertStatus(t, resp, http.StatusOK)
	}

	completion := `{"status":"processing-complete","details":{"clips":[
		{"title":"Highlight 1","storageKey":"clip-extractor/clips-1/clips/clip_001.mp4","startSec":0,"endSec":8},
		{"title":"Highlight 2","storageKey":"clip-extractor/clips-1/clips/clip_002.mp4","startSec":90,"endSec":97}
	]}}`
	resp = postProgress(t, ta, "clip-extractor", "clips-1", completion)
	assertStatus(t, resp, http.StatusOK)

	resp, err = doRequest(ta.app, http.MethodGet, "/clip-extractor/project/clips-1", "", nil)
	if err != nil {
		t.Fatalf("project request failed: %v", err)
	}
	project := parseJSON(t, resp)
	if project["status"] != "completed" {
		t.Errorf("status = %v, want completed", project["status"])
	}
	clips, _ := project["clips"].([]interface{})
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	first := clips[0].(map[string]interface{})
	url, _ := first["streamUrl"].(string)
	if !strings.Contains(url, "/clip-extractor/stream/clips-1/clip_001.mp4") {
		t.Errorf("stream URL = %q", url)
	}
}

func TestClipStreamProxy(t *testing.T) {
	ta := setupApp(t)
	createClipProject(t, ta, "clips-1")

	payload := "fake mp4 bytes"
	if _, err := ta.storage.Upload(context.Background(), "clip-extractor/clips-1/clips/clip_001.mp4",
		strings.NewReader(payload), "video/mp4"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	resp, err := doRequest(ta.app, http.MethodGet, "/clip-extractor/stream/clips-1/clip_001.mp4", "", nil)
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("content type = %q, want video/mp4", ct)
	}
	if body := readBody(t, resp); body != payload {
		t.Errorf("streamed body = %q", body)
	}

	// Missing object is a plain 404
	resp, err = doRequest(ta.app, http.MethodGet, "/clip-extractor/stream/clips-1/missing.mp4", "", nil)
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}
