// Package syncer keeps the foundations catalog (members and projects) in
// sync with each foundation's landscape API.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gitjobs/gitjobs/internal/model"
)

const (
	// defaultFoundationTimeout bounds how long synchronizing a single
	// foundation (members and projects) may take.
	defaultFoundationTimeout = 300 * time.Second

	// maxConcurrentFoundations bounds how many foundations are synchronized
	// at the same time.
	maxConcurrentFoundations = 3
)

// memberKindRE matches the member kind suffix in a member name, e.g.
// " (Platinum)".
var memberKindRE = regexp.MustCompile(` \(.*\)`)

// Store is the data access layer the syncer reconciles against.
type Store interface {
	ListFoundations(ctx context.Context) ([]model.Foundation, error)

	ListMembers(ctx context.Context, foundation string) ([]model.Member, error)
	AddMember(ctx context.Context, m model.Member) error
	UpdateMember(ctx context.Context, m model.Member) error
	RemoveMember(ctx context.Context, foundation, name string) error

	ListProjects(ctx context.Context, foundation string) ([]model.Project, error)
	AddProject(ctx context.Context, p model.Project) error
	UpdateProject(ctx context.Context, p model.Project) error
	RemoveProject(ctx context.Context, foundation, name string) error
}

// Catalog fetches members and projects from a foundation's landscape.
type Catalog interface {
	Members(ctx context.Context, landscapeURL string) ([]LandscapeMember, error)
	Projects(ctx context.Context, landscapeURL string) ([]LandscapeProject, error)
}

// Syncer reconciles the registered foundations against their landscapes.
type Syncer struct {
	store             Store
	catalog           Catalog
	foundationTimeout time.Duration
}

// New creates a new syncer.
func New(store Store, catalog Catalog) *Syncer {
	return &Syncer{
		store:             store,
		catalog:           catalog,
		foundationTimeout: defaultFoundationTimeout,
	}
}

// Run performs one synchronization pass over all registered foundations, up
// to three concurrently. Failures are per foundation: one foundation's
// error does not stop the others, and the combined error is returned at the
// end of the pass.
func (s *Syncer) Run(ctx context.Context) error {
	slog.Info("syncer started")

	foundations, err := s.store.ListFoundations(ctx)
	if err != nil {
		return fmt.Errorf("error listing foundations: %w", err)
	}

	sem := semaphore.NewWeighted(maxConcurrentFoundations)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, foundation := range foundations {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs = append(errs, err)
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.syncFoundation(ctx, foundation); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("error synchronizing foundation %s: %w", foundation.Name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	slog.Info("syncer finished")
	return errors.Join(errs...)
}

// syncFoundation synchronizes the members and projects of one foundation
// under a single deadline.
func (s *Syncer) syncFoundation(ctx context.Context, foundation model.Foundation) error {
	ctx, cancel := context.WithTimeout(ctx, s.foundationTimeout)
	defer cancel()

	logger := slog.With("foundation", foundation.Name)
	logger.Info("synchronizing foundation")

	if err := s.syncMembers(ctx, logger, foundation); err != nil {
		return err
	}
	if err := s.syncProjects(ctx, logger, foundation); err != nil {
		return err
	}
	return nil
}

// syncMembers reconciles the foundation's members against the landscape.
// Names are normalized by stripping the kind suffix, and non-public entries
// are ignored entirely.
func (s *Syncer) syncMembers(ctx context.Context, logger *slog.Logger, foundation model.Foundation) error {
	landscape, err := s.catalog.Members(ctx, foundation.LandscapeURL)
	if err != nil {
		return err
	}

	inLandscape := make(map[string]model.Member, len(landscape))
	for _, lm := range landscape {
		if strings.Contains(strings.ToLower(lm.Name), "non-public") {
			continue
		}
		name := memberKindRE.ReplaceAllString(lm.Name, "")
		inLandscape[name] = model.Member{
			Foundation: foundation.Name,
			Name:       name,
			Level:      lm.Subcategory,
			LogoURL:    lm.LogoURL,
		}
	}

	members, err := s.store.ListMembers(ctx, foundation.Name)
	if err != nil {
		return err
	}
	inDB := make(map[string]model.Member, len(members))
	for _, m := range members {
		inDB[m.Name] = m
	}

	// Add members in the landscape that aren't registered yet.
	for name, m := range inLandscape {
		if _, ok := inDB[name]; ok {
			continue
		}
		logger.Debug("adding member", "name", name)
		if err := s.store.AddMember(ctx, m); err != nil {
			return err
		}
	}

	// Remove members no longer in the landscape.
	for name := range inDB {
		if _, ok := inLandscape[name]; ok {
			continue
		}
		logger.Debug("removing member", "name", name)
		if err := s.store.RemoveMember(ctx, foundation.Name, name); err != nil {
			return err
		}
	}

	// Update members whose level or logo changed.
	for name, m := range inLandscape {
		current, ok := inDB[name]
		if !ok || (current.Level == m.Level && current.LogoURL == m.LogoURL) {
			continue
		}
		logger.Debug("updating member", "name", name)
		if err := s.store.UpdateMember(ctx, m); err != nil {
			return err
		}
	}

	return nil
}

// syncProjects reconciles the foundation's projects against the landscape.
// Projects archived upstream are not added, but existing rows that turn
// archived are kept and updated rather than removed.
func (s *Syncer) syncProjects(ctx context.Context, logger *slog.Logger, foundation model.Foundation) error {
	landscape, err := s.catalog.Projects(ctx, foundation.LandscapeURL)
	if err != nil {
		return err
	}

	inLandscape := make(map[string]model.Project, len(landscape))
	for _, lp := range landscape {
		inLandscape[lp.Name] = model.Project{
			Foundation: foundation.Name,
			Name:       lp.Name,
			Maturity:   lp.Maturity,
			LogoURL:    lp.LogoURL,
		}
	}

	projects, err := s.store.ListProjects(ctx, foundation.Name)
	if err != nil {
		return err
	}
	inDB := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		inDB[p.Name] = p
	}

	// Add projects in the landscape that aren't registered yet, except
	// archived ones.
	for name, p := range inLandscape {
		if _, ok := inDB[name]; ok {
			continue
		}
		if p.Maturity == "archived" {
			continue
		}
		logger.Debug("adding project", "name", name)
		if err := s.store.AddProject(ctx, p); err != nil {
			return err
		}
	}

	// Remove projects no longer in the landscape.
	for name := range inDB {
		if _, ok := inLandscape[name]; ok {
			continue
		}
		logger.Debug("removing project", "name", name)
		if err := s.store.RemoveProject(ctx, foundation.Name, name); err != nil {
			return err
		}
	}

	// Update projects whose maturity or logo changed.
	for name, p := range inLandscape {
		current, ok := inDB[name]
		if !ok || (current.Maturity == p.Maturity && current.LogoURL == p.LogoURL) {
			continue
		}
		logger.Debug("updating project", "name", name)
		if err := s.store.UpdateProject(ctx, p); err != nil {
			return err
		}
	}

	return nil
}
