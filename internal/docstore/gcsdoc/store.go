// Package gcsdoc implements the remote document store on Google Cloud
// Storage. Each task's subtask document is one JSON object at
// {prefix}/{category}/{task_id}/subtasks.json.
package gcsdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/board"
)

const subtasksObject = "subtasks.json"

// Config captures the parameters required to address subtask documents.
type Config struct {
	Bucket string
	Prefix string
}

// Store writes subtask documents into a GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// New creates a GCS-backed document store. Authentication is handled via
// Application Default Credentials. The bucket is probed at startup to fail
// fast on misconfiguration.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("remote.gcs.bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("failed to close GCS client after bucket check failure", zap.Error(cerr))
		}
		return nil, fmt.Errorf("get GCS bucket %q attributes: %w", cfg.Bucket, err)
	}
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wires an existing client to the store; used by tests.
func NewWithClient(client *storage.Client, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}
}

// ReplaceSubtasks overwrites the task's subtask object with the JSON form of
// the provided sequence. A nil sequence becomes an empty array.
func (s *Store) ReplaceSubtasks(ctx context.Context, category, taskID string, subtasks []board.Subtask) error {
	if category == "" || taskID == "" {
		return fmt.Errorf("category and task id are required")
	}
	if subtasks == nil {
		subtasks = []board.Subtask{}
	}
	data, err := json.Marshal(subtasks)
	if err != nil {
		return fmt.Errorf("marshal subtasks: %w", err)
	}

	writer := s.client.Bucket(s.bucket).Object(s.objectPath(category, taskID)).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		if cerr := writer.Close(); cerr != nil {
			s.logger.Warn("failed to close GCS writer after write failure", zap.Error(cerr))
		}
		return fmt.Errorf("write subtask document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close GCS writer: %w", err)
	}
	return nil
}

func (s *Store) objectPath(category, taskID string) string {
	if s.prefix == "" {
		return fmt.Sprintf("%s/%s/%s", category, taskID, subtasksObject)
	}
	return fmt.Sprintf("%s/%s/%s/%s", s.prefix, category, taskID, subtasksObject)
}

// Close closes the underlying GCS client.
func (s *Store) Close(context.Context) error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close GCS client: %w", err)
	}
	return nil
}
