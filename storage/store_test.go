package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/aida/workflow"
)

func TestBucketNames(t *testing.T) {
	if BucketRuns != "AIDA_RUNS" {
		t.Errorf("unexpected runs bucket: %s", BucketRuns)
	}
	if BucketResults != "AIDA_RESULTS" {
		t.Errorf("unexpected results bucket: %s", BucketResults)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("nats: key not found")) {
		t.Error("expected key-not-found error to match")
	}
	if isNotFound(fmt.Errorf("connection refused")) {
		t.Error("unrelated error should not match")
	}
	if isNotFound(nil) {
		t.Error("nil error should not match")
	}
}

func TestSaveRejectsEmptyRunID(t *testing.T) {
	s := &RunStore{}
	if err := s.Save(context.Background(), &workflow.Snapshot{}); err == nil {
		t.Error("expected error for snapshot without run id")
	}
	if err := s.Save(context.Background(), nil); err == nil {
		t.Error("expected error for nil snapshot")
	}
}

// testStore connects to a live NATS server, skipping the test when
// NATS_URL is unset.
func testStore(t *testing.T) *RunStore {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect to NATS: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("create JetStream context: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	store, err := NewRunStore(ctx, js)
	if err != nil {
		t.Fatalf("NewRunStore() error = %v", err)
	}
	return store
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	runID := uuid.NewString()
	snap := &workflow.Snapshot{
		RunID:     runID,
		Context:   workflow.NewContext(2),
		UpdatedAt: time.Now().UTC(),
	}

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(ctx, runID) })

	loaded, err := store.Load(ctx, runID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.RunID != runID {
		t.Errorf("run id mismatch: %s", loaded.RunID)
	}
	if loaded.Context == nil || loaded.Context.CurrentState != workflow.StateInit {
		t.Errorf("context not restored: %+v", loaded.Context)
	}

	ids, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	found := false
	for _, id := range ids {
		if id == runID {
			found = true
		}
	}
	if !found {
		t.Errorf("run %s missing from ListRuns", runID)
	}
}

func TestLoadMissingRun(t *testing.T) {
	store := testStore(t)

	_, err := store.Load(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResultRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	runID := uuid.NewString()
	result := &workflow.Result{
		Success: true,
		State:   workflow.StateComplete,
		Metadata: workflow.RunMetadata{
			RunID:            runID,
			ValidationPassed: true,
		},
	}

	if err := store.SaveResult(ctx, runID, result); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	stored, err := store.GetResult(ctx, runID)
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}
	if stored.RunID != runID || !stored.Result.Success {
		t.Errorf("unexpected stored result: %+v", stored)
	}
	if stored.ArchivedAt.IsZero() {
		t.Error("expected archive timestamp to be set")
	}
}
