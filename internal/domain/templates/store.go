// Package templates stores versioned weight templates and resolves which one
// applies to an event.
package templates

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/okian/fairway/internal/domain/course"
	"github.com/okian/fairway/internal/domain/weights"
	"github.com/okian/fairway/pkg/logger"
)

// Strategy names how a template was picked.
type Strategy string

const (
	ByTemplateID Strategy = "template_id"
	ByVenue      Strategy = "venue"
	ByArchetype  Strategy = "archetype"
	ByDefault    Strategy = "default"
)

// Query describes the event a template is wanted for. Empty fields are
// skipped during resolution.
type Query struct {
	TemplateID string `json:"template_id,omitempty"`
	Version    int    `json:"version,omitempty"`
	Venue      string `json:"venue,omitempty"`
	Archetype  string `json:"archetype,omitempty"`
}

// Resolution is the template picked for a query and how it was picked.
type Resolution struct {
	Config   weights.Config `json:"config"`
	Strategy Strategy       `json:"strategy"`
}

// Store holds every version of every template. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	byID       map[string][]weights.Config // ascending version
	venues     map[string]string
	archetypes map[course.Archetype]string
	log        logger.Logger
}

// NewStore indexes configs. Every config must already be normalized.
func NewStore(configs ...weights.Config) (*Store, error) {
	s := &Store{
		byID:       make(map[string][]weights.Config),
		venues:     make(map[string]string),
		archetypes: make(map[course.Archetype]string),
		log:        logger.Default(),
	}
	for _, c := range configs {
		if err := s.add(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add validates and stores a new template version.
func (s *Store) Add(c weights.Config) error {
	norm, err := weights.Normalize(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(norm)
}

func (s *Store) add(c weights.Config) error {
	if err := weights.Validate(c); err != nil {
		return err
	}
	versions := s.byID[c.ID]
	for _, v := range versions {
		if v.Version == c.Version {
			return fmt.Errorf("%w: %s", ErrDuplicateTemplate, c.Key())
		}
	}

	switch c.Kind {
	case weights.KindVenue:
		if owner, ok := s.venues[c.Venue]; ok && owner != c.ID {
			return fmt.Errorf("%w: venue %q is claimed by %s and %s", ErrDuplicateTemplate, c.Venue, owner, c.ID)
		}
		s.venues[c.Venue] = c.ID
	case weights.KindArchetype:
		if owner, ok := s.archetypes[c.Archetype]; ok && owner != c.ID {
			return fmt.Errorf("%w: archetype %s is claimed by %s and %s", ErrDuplicateTemplate, c.Archetype, owner, c.ID)
		}
		s.archetypes[c.Archetype] = c.ID
	}

	versions = append(versions, c.Clone())
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	s.byID[c.ID] = versions
	return nil
}

// Get returns the latest version of a template.
func (s *Store) Get(id string) (weights.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.byID[id]
	if len(versions) == 0 {
		return weights.Config{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	return versions[len(versions)-1].Clone(), nil
}

// GetVersion returns one specific version of a template.
func (s *Store) GetVersion(id string, version int) (weights.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byID[id] {
		if c.Version == version {
			return c.Clone(), nil
		}
	}
	return weights.Config{}, fmt.Errorf("%w: %s@%d", ErrTemplateNotFound, id, version)
}

// Versions lists the stored versions of a template in ascending order.
func (s *Store) Versions(id string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.byID[id]))
	for _, c := range s.byID[id] {
		out = append(out, c.Version)
	}
	return out
}

// List returns the latest version of every template ordered by id.
func (s *Store) List() []weights.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]weights.Config, 0, len(ids))
	for _, id := range ids {
		versions := s.byID[id]
		out = append(out, versions[len(versions)-1].Clone())
	}
	return out
}

// Resolve picks a template for q: an explicit template id wins, then a
// venue template, then the archetype template, then the balanced one. An
// explicit id or version that does not exist is an error, never a fallback.
func (s *Store) Resolve(ctx context.Context, q Query) (Resolution, error) {
	if id := strings.TrimSpace(q.TemplateID); id != "" {
		var (
			c   weights.Config
			err error
		)
		if q.Version > 0 {
			c, err = s.GetVersion(id, q.Version)
		} else {
			c, err = s.Get(id)
		}
		if err != nil {
			return Resolution{}, err
		}
		return s.resolved(ctx, q, c, ByTemplateID), nil
	}

	if venue := NormalizeVenue(q.Venue); venue != "" {
		s.mu.RLock()
		id, ok := s.venues[venue]
		s.mu.RUnlock()
		if ok {
			c, err := s.Get(id)
			if err != nil {
				return Resolution{}, err
			}
			return s.resolved(ctx, q, c, ByVenue), nil
		}
	}

	if strings.TrimSpace(q.Archetype) != "" {
		a, err := course.ParseArchetype(q.Archetype)
		if err != nil {
			return Resolution{}, err
		}
		if c, ok := s.forArchetype(a); ok {
			return s.resolved(ctx, q, c, ByArchetype), nil
		}
	}

	c, ok := s.forArchetype(course.Balanced)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: no %s template to fall back on", ErrTemplateNotFound, course.Balanced)
	}
	return s.resolved(ctx, q, c, ByDefault), nil
}

func (s *Store) forArchetype(a course.Archetype) (weights.Config, bool) {
	s.mu.RLock()
	id, ok := s.archetypes[a]
	s.mu.RUnlock()
	if !ok {
		return weights.Config{}, false
	}
	c, err := s.Get(id)
	return c, err == nil
}

func (s *Store) resolved(ctx context.Context, q Query, c weights.Config, how Strategy) Resolution {
	s.log.Info(ctx, "template resolved",
		logger.String("template", c.Key()),
		logger.String("strategy", string(how)),
		logger.String("venue", q.Venue),
		logger.String("archetype", q.Archetype),
	)
	return Resolution{Config: c, Strategy: how}
}
