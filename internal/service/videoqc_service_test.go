package service

import (
	"context"
	"strings"
	"testing"

	"github.com/reelworks/mediagen/internal/client"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/store"
)

func newQcFixture(t *testing.T) (*VideoQcService, *fakeDispatcher) {
	t.Helper()
	d := &fakeDispatcher{}
	svc := NewVideoQcService(store.NewMemoryStore(), d, client.NewMemoryStorage(), testConfig())
	return svc, d
}

func TestQcCreateAssignsRequestID(t *testing.T) {
	svc, _ := newQcFixture(t)
	job, err := svc.CreateProject(context.Background(), &model.CreateProjectRequest{
		ProjectID:  "p1",
		SourceURL:  "https://example.com/raw.mp4",
		RawMediaID: "upload-42",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if job.QcRequestID == "" {
		t.Error("qc request id not assigned")
	}
	if job.RawMediaID != "upload-42" {
		t.Errorf("rawMediaId = %q, want upload-42", job.RawMediaID)
	}
}

func TestInitiatePassesCorrelationParams(t *testing.T) {
	svc, d := newQcFixture(t)
	ctx := context.Background()
	created, err := svc.CreateProject(ctx, &model.CreateProjectRequest{
		ProjectID:  "p1",
		SourceURL:  "https://example.com/raw.mp4",
		RawMediaID: "upload-42",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Initiate(ctx, "p1"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	msg := d.messages[0]
	if msg.Params["qcRequestId"] != created.QcRequestID {
		t.Errorf("qcRequestId param = %v, want %s", msg.Params["qcRequestId"], created.QcRequestID)
	}
	if msg.Params["rawMediaId"] != "upload-42" {
		t.Errorf("rawMediaId param = %v", msg.Params["rawMediaId"])
	}
}

func TestQcCompletionRecordsReport(t *testing.T) {
	svc, _ := newQcFixture(t)
	ctx := context.Background()
	if _, err := svc.CreateProject(ctx, &model.CreateProjectRequest{ProjectID: "p1", SourceURL: "https://example.com/raw.mp4"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Initiate(ctx, "p1"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	passed := false
	event := &model.ProgressEvent{
		Status: model.StatusProcessingDone,
		Details: &model.EventDetails{
			QcReportKey: "video-qc/p1/reports/qc_report.json",
			QcPassed:    &passed,
		},
	}
	if err := svc.Flow().HandleProgress(ctx, "p1", event); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	job, _ := svc.Flow().GetJob(ctx, "p1")
	if job.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if !strings.Contains(job.QcReportURL, "qc_report.json") {
		t.Errorf("report URL = %q", job.QcReportURL)
	}
	if job.ProgressStage != "qc_flagged" {
		t.Errorf("stage = %q, want qc_flagged", job.ProgressStage)
	}
}
