package repo

import (
	"context"
	"fmt"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

// PlanRepositoryPG implements domain.PlanRepository.
type PlanRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewPlanRepository creates a new plan repository backed by PostgreSQL.
func NewPlanRepository(sql infra.SQLExecutor) *PlanRepositoryPG {
	return &PlanRepositoryPG{sql: sql}
}

// List returns active plans ordered by price.
func (r *PlanRepositoryPG) List(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListPlans)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	var plans []domain.Plan
	for rows.Next() {
		var p domain.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.MusicPerMonth, &p.ImagesPerMonth, &p.VideosPerMonth, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// GetByID fetches one plan.
func (r *PlanRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectPlanByID, id)
	var p domain.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.MusicPerMonth, &p.ImagesPerMonth, &p.VideosPerMonth, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select plan: %w", err)
	}
	return &p, nil
}

var _ domain.PlanRepository = (*PlanRepositoryPG)(nil)
