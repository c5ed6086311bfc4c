package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/dao"
	"github.com/justy6674/comply/service/dao/criteria"
)

// Service implements filesystem-backed approval-request storage so that
// workflow state survives process restarts. Requests are stored one JSON
// file per id under the base path. Optimistic concurrency is enforced the
// same way as the in-memory store: a save must carry the stored SCN.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

// Ensure Service implements dao.Service
var _ dao.Service[string, model.ApprovalRequest] = (*Service)(nil)

// New creates a filesystem request store rooted at basePath.
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

	return &Service{
		basePath: basePath,
		fs:       fs,
	}, nil
}

// Save persists a request. The incoming SCN must equal the stored SCN (zero
// for a first save); the persisted copy advances its SCN by one.
func (s *Service) Save(ctx context.Context, r *model.ApprovalRequest) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(ctx, r.ID)
	if err != nil && err != dao.ErrNotFound {
		return err
	}
	if existing != nil {
		if existing.SCN != r.SCN {
			return dao.ErrStaleVersion
		}
	} else if r.SCN != 0 {
		return dao.ErrStaleVersion
	}

	stored := r.Clone()
	stored.SCN++

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	filePath := s.requestPath(r.ID)
	if err := s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save request to file %s: %w", filePath, err)
	}
	r.SCN = stored.SCN
	return nil
}

// Load retrieves a request by id or dao.ErrNotFound.
func (s *Service) Load(ctx context.Context, id string) (*model.ApprovalRequest, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id string) (*model.ApprovalRequest, error) {
	filePath := s.requestPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if request exists: %w", err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}

	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}

	var request model.ApprovalRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request data: %w", err)
	}
	return &request, nil
}

// Delete removes a request file.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.requestPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if request exists: %w", err)
	}
	if !exists {
		return dao.ErrNotFound
	}

	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete request file: %w", err)
	}
	return nil
}

// List returns all stored requests matching the supplied parameters.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list request files: %w", err)
	}

	var requests []*model.ApprovalRequest
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}

		data, err := s.fs.Download(ctx, object)
		if err != nil {
			// Skip unreadable files, keep listing the rest.
			continue
		}

		var request model.ApprovalRequest
		if err := json.Unmarshal(data, &request); err != nil {
			continue
		}
		if !criteria.Matches(parameters, requestField(&request)) {
			continue
		}
		requests = append(requests, &request)
	}
	return requests, nil
}

func requestField(r *model.ApprovalRequest) func(name string) (string, bool) {
	return func(name string) (string, bool) {
		switch name {
		case "State":
			return string(r.State), true
		case "ContentID":
			return r.ContentID, true
		case "PracticeID":
			return r.PracticeID, true
		case "AssigneeID":
			return r.AssigneeID, true
		case "ApprovalLevel":
			return string(r.ApprovalLevel), true
		}
		return "", false
	}
}

// requestPath returns the file path for a request id.
func (s *Service) requestPath(id string) string {
	return url.Join(s.basePath, fmt.Sprintf("%s.json", id))
}
