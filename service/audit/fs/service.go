package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/audit"
	"github.com/justy6674/comply/service/dao"
)

// Service is a filesystem-backed audit trail: one JSON file per entry under
// the base path, never rewritten. Queries scan the directory and order
// results by entry timestamp so point-in-time audits survive restarts.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ audit.Service = (*Service)(nil)

// New creates a filesystem audit trail rooted at basePath.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	fs := afs.New()

	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}

	basePath = url.Normalize(basePath, file.Scheme)

	return &Service{basePath: basePath, fs: fs}, nil
}

// Append writes the entry file unless it already exists.
func (s *Service) Append(ctx context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return dao.ErrNilEntity
	}
	if entry.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.entryPath(entry.ID)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if entry exists: %w", err)
	}
	if exists {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	if err := s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save audit entry to %s: %w", filePath, err)
	}
	return nil
}

// QueryByRequest returns all entries for a request ordered by timestamp.
func (s *Service) QueryByRequest(ctx context.Context, requestID string) ([]*model.AuditEntry, error) {
	return s.query(ctx, func(e *model.AuditEntry) bool { return e.RequestID == requestID })
}

// QueryByContent returns all entries for a content id ordered by timestamp.
func (s *Service) QueryByContent(ctx context.Context, contentID string) ([]*model.AuditEntry, error) {
	return s.query(ctx, func(e *model.AuditEntry) bool { return e.ContentID == contentID })
}

// QueryByPractice returns all entries for a practice within the date range.
func (s *Service) QueryByPractice(ctx context.Context, practiceID string, from, to time.Time) ([]*model.AuditEntry, error) {
	return s.query(ctx, func(e *model.AuditEntry) bool {
		return e.PracticeID == practiceID && audit.InRange(e, from, to)
	})
}

func (s *Service) query(ctx context.Context, match func(*model.AuditEntry) bool) ([]*model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	var entries []*model.AuditEntry
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			continue
		}
		var entry model.AuditEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if match(&entry) {
			entries = append(entries, &entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *Service) entryPath(id string) string {
	return url.Join(s.basePath, fmt.Sprintf("%s.json", id))
}
