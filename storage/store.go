// Package storage persists workflow runs and finished proposals in NATS
// JetStream KV.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/aida/workflow"
)

// Bucket names.
const (
	BucketRuns    = "AIDA_RUNS"
	BucketResults = "AIDA_RESULTS"
)

// RunStore provides run snapshot and result storage backed by NATS KV.
// It implements workflow.SnapshotStore.
type RunStore struct {
	runs    jetstream.KeyValue
	results jetstream.KeyValue
}

// NewRunStore creates a RunStore with the given JetStream context,
// creating the KV buckets if they don't exist.
func NewRunStore(ctx context.Context, js jetstream.JetStream) (*RunStore, error) {
	runs, err := getOrCreateBucket(ctx, js, BucketRuns)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	results, err := getOrCreateBucket(ctx, js, BucketResults)
	if err != nil {
		return nil, fmt.Errorf("create results bucket: %w", err)
	}

	return &RunStore{runs: runs, results: results}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Aida %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// Save persists a run snapshot, keyed by run id. Last write wins.
func (s *RunStore) Save(ctx context.Context, snap *workflow.Snapshot) error {
	if snap == nil || snap.RunID == "" {
		return fmt.Errorf("snapshot has no run id")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if _, err := s.runs.Put(ctx, snap.RunID, data); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Load retrieves the latest snapshot for a run.
func (s *RunStore) Load(ctx context.Context, runID string) (*workflow.Snapshot, error) {
	entry, err := s.runs.Get(ctx, runID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap workflow.Snapshot
	if err := json.Unmarshal(entry.Value(), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes a run's snapshot.
func (s *RunStore) Delete(ctx context.Context, runID string) error {
	if err := s.runs.Delete(ctx, runID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// ListRuns returns the ids of all stored runs.
func (s *RunStore) ListRuns(ctx context.Context) ([]string, error) {
	keys, err := s.runs.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list run keys: %w", err)
	}
	return keys, nil
}

// StoredResult is a finished run's outcome as archived in KV.
type StoredResult struct {
	RunID      string           `json:"run_id"`
	Result     *workflow.Result `json:"result"`
	ArchivedAt time.Time        `json:"archived_at"`
}

// SaveResult archives a finished run's result, keyed by run id.
func (s *RunStore) SaveResult(ctx context.Context, runID string, result *workflow.Result) error {
	stored := StoredResult{
		RunID:      runID,
		Result:     result,
		ArchivedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if _, err := s.results.Put(ctx, runID, data); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

// GetResult retrieves an archived result by run id.
func (s *RunStore) GetResult(ctx context.Context, runID string) (*StoredResult, error) {
	entry, err := s.results.Get(ctx, runID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}

	var stored StoredResult
	if err := json.Unmarshal(entry.Value(), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &stored, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
