package repository

import (
	"context"
	"fmt"

	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/model"
)

// FoundationRepository handles the foundation catalog: foundations and their
// members and projects.
type FoundationRepository struct {
	db database.Querier
}

// NewFoundationRepository creates a new foundation repository.
func NewFoundationRepository(db database.Querier) *FoundationRepository {
	return &FoundationRepository{db: db}
}

// ListFoundations returns the foundations that have a landscape to sync
// against.
func (r *FoundationRepository) ListFoundations(ctx context.Context) ([]model.Foundation, error) {
	rows, err := r.db.Query(ctx, `
		select foundation_id, landscape_url
		from foundation
		where landscape_url is not null
		order by foundation_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing foundations: %w", err)
	}
	defer rows.Close()

	var foundations []model.Foundation
	for rows.Next() {
		var f model.Foundation
		if err := rows.Scan(&f.Name, &f.LandscapeURL); err != nil {
			return nil, fmt.Errorf("error scanning foundation: %w", err)
		}
		foundations = append(foundations, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error listing foundations: %w", err)
	}
	return foundations, nil
}

// ===== Members =====

// ListMembers returns the registered members of a foundation.
func (r *FoundationRepository) ListMembers(ctx context.Context, foundation string) ([]model.Member, error) {
	rows, err := r.db.Query(ctx, `
		select foundation_id, name, level, logo_url
		from member
		where foundation_id = $1`,
		foundation,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.Foundation, &m.Name, &m.Level, &m.LogoURL); err != nil {
			return nil, fmt.Errorf("error scanning member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	return members, nil
}

// AddMember registers a new member of a foundation.
func (r *FoundationRepository) AddMember(ctx context.Context, m model.Member) error {
	_, err := r.db.Exec(ctx, `
		insert into member (foundation_id, name, level, logo_url)
		values ($1, $2, $3, $4)`,
		m.Foundation, m.Name, m.Level, m.LogoURL,
	)
	if err != nil {
		return fmt.Errorf("error adding member: %w", err)
	}
	return nil
}

// UpdateMember updates the level and logo of a registered member.
func (r *FoundationRepository) UpdateMember(ctx context.Context, m model.Member) error {
	_, err := r.db.Exec(ctx, `
		update member
		set level = $3, logo_url = $4
		where foundation_id = $1 and name = $2`,
		m.Foundation, m.Name, m.Level, m.LogoURL,
	)
	if err != nil {
		return fmt.Errorf("error updating member: %w", err)
	}
	return nil
}

// RemoveMember removes a member from a foundation.
func (r *FoundationRepository) RemoveMember(ctx context.Context, foundation, name string) error {
	_, err := r.db.Exec(ctx, `
		delete from member
		where foundation_id = $1 and name = $2`,
		foundation, name,
	)
	if err != nil {
		return fmt.Errorf("error removing member: %w", err)
	}
	return nil
}

// ===== Projects =====

// ListProjects returns the registered projects of a foundation.
func (r *FoundationRepository) ListProjects(ctx context.Context, foundation string) ([]model.Project, error) {
	rows, err := r.db.Query(ctx, `
		select foundation_id, name, maturity, logo_url
		from project
		where foundation_id = $1`,
		foundation,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.Foundation, &p.Name, &p.Maturity, &p.LogoURL); err != nil {
			return nil, fmt.Errorf("error scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error listing projects: %w", err)
	}
	return projects, nil
}

// AddProject registers a new project of a foundation.
func (r *FoundationRepository) AddProject(ctx context.Context, p model.Project) error {
	_, err := r.db.Exec(ctx, `
		insert into project (foundation_id, name, maturity, logo_url)
		values ($1, $2, $3, $4)`,
		p.Foundation, p.Name, p.Maturity, p.LogoURL,
	)
	if err != nil {
		return fmt.Errorf("error adding project: %w", err)
	}
	return nil
}

// UpdateProject updates the maturity and logo of a registered project.
func (r *FoundationRepository) UpdateProject(ctx context.Context, p model.Project) error {
	_, err := r.db.Exec(ctx, `
		update project
		set maturity = $3, logo_url = $4
		where foundation_id = $1 and name = $2`,
		p.Foundation, p.Name, p.Maturity, p.LogoURL,
	)
	if err != nil {
		return fmt.Errorf("error updating project: %w", err)
	}
	return nil
}

// RemoveProject removes a project from a foundation.
func (r *FoundationRepository) RemoveProject(ctx context.Context, foundation, name string) error {
	_, err := r.db.Exec(ctx, `
		delete from project
		where foundation_id = $1 and name = $2`,
		foundation, name,
	)
	if err != nil {
		return fmt.Errorf("error removing project: %w", err)
	}
	return nil
}
