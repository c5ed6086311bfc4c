// Package fs loads compliance rule sets from YAML documents addressed by a
// base URL, one file per jurisdiction/profession pair. Any afs-supported
// scheme works (file, mem, s3 …).
package fs

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"

	"github.com/justy6674/comply/model"
	"github.com/justy6674/comply/service/catalog"
)

// Service is an afs-backed catalog.Provider. Rule sets live at
// <baseURL>/<jurisdiction>/<profession>.yaml and are cached after the first
// successful load.
type Service struct {
	baseURL string
	fs      afs.Service

	mu    sync.RWMutex
	cache map[string]*model.RuleSet
}

var _ catalog.Provider = (*Service)(nil)

// New creates a catalog loader rooted at baseURL.
func New(baseURL string) *Service {
	return &Service{
		baseURL: baseURL,
		fs:      afs.New(),
		cache:   map[string]*model.RuleSet{},
	}
}

// Rules loads, validates and caches the rule set for the pair. Backend or
// decode failures surface as catalog.ErrUnavailable so the evaluator fails
// closed rather than treating content as compliant.
func (s *Service) Rules(ctx context.Context, jurisdiction, profession string) (*model.RuleSet, error) {
	key := catalog.Key(jurisdiction, profession)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	URL := s.ruleSetURL(jurisdiction, profession)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, URL)
	}

	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}

	ruleSet, err := DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", catalog.ErrUnavailable, URL, err)
	}
	if ruleSet.Jurisdiction == "" {
		ruleSet.Jurisdiction = jurisdiction
	}
	if ruleSet.Profession == "" {
		ruleSet.Profession = profession
	}

	s.mu.Lock()
	s.cache[key] = ruleSet
	s.mu.Unlock()
	return ruleSet, nil
}

// Invalidate drops the cached rule set for the pair, forcing a reload on the
// next use; empty arguments drop the whole cache.
func (s *Service) Invalidate(jurisdiction, profession string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jurisdiction == "" && profession == "" {
		s.cache = map[string]*model.RuleSet{}
		return
	}
	delete(s.cache, catalog.Key(jurisdiction, profession))
}

// DecodeYAML decodes and validates a rule set document.
func DecodeYAML(encoded []byte) (*model.RuleSet, error) {
	ruleSet := &model.RuleSet{}
	if err := yaml.Unmarshal(encoded, ruleSet); err != nil {
		return nil, err
	}
	if err := catalog.Validate(ruleSet); err != nil {
		return nil, err
	}
	return ruleSet, nil
}

func (s *Service) ruleSetURL(jurisdiction, profession string) string {
	return url.Join(s.baseURL, jurisdiction, profession+".yaml")
}
