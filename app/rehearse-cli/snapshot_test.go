package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/orchestrator/persistence"
)

func TestShowSnapshot_PrintsYAML(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	snap := &models.Snapshot{
		Version:   models.SnapshotVersion,
		SessionID: "sess-9",
		Config:    models.InterviewConfig{Company: "Acme", Position: "SRE", Mode: models.ModeStandard},
		Questions: []models.Question{{ID: "q1", Text: "Why Acme?", Category: "hr", TimeLimit: 120}},
		Status:    models.StatusPaused,
		Phase:     models.PhaseUserTurn,
	}
	if err := store.Save(ctx, persistence.DefaultKey, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	var buf bytes.Buffer
	if err := showSnapshot(ctx, &buf, store, persistence.DefaultKey); err != nil {
		t.Fatalf("show: %v", err)
	}

	var got models.Snapshot
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if got.SessionID != "sess-9" || got.Config.Company != "Acme" || len(got.Questions) != 1 || got.Status != models.StatusPaused {
		t.Fatalf("decoded=%+v", got)
	}
	if !strings.Contains(buf.String(), "session_id: sess-9") {
		t.Fatalf("unexpected keys:\n%s", buf.String())
	}
}

func TestShowSnapshot_Missing(t *testing.T) {
	var buf bytes.Buffer
	if err := showSnapshot(context.Background(), &buf, persistence.NewMemoryStore(), persistence.DefaultKey); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(buf.String(), "no saved rehearsal") {
		t.Fatalf("output=%q", buf.String())
	}
}
