package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new user repository backed by PostgreSQL.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// UpsertByGoogleSub inserts or refreshes a user keyed by Google subject.
// New accounts start on the free plan with the current calendar month as the
// billing period.
func (r *UserRepositoryPG) UpsertByGoogleSub(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertUserByGoogleSub, user.GoogleSub, user.Email, user.Name, user.Picture)
	stored, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return stored, nil
}

// GetByID fetches a user by primary key.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, id)
	user, err := scanUser(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// GetByBillingCustomer fetches a user by the billing provider's customer id.
func (r *UserRepositoryPG) GetByBillingCustomer(ctx context.Context, customer string) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserByBillingCustomer, customer)
	user, err := scanUser(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select user by billing customer: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var role, planStatus string
	if err := row.Scan(
		&user.ID,
		&user.GoogleSub,
		&user.Email,
		&user.Name,
		&user.Picture,
		&role,
		&user.PlanID,
		&planStatus,
		&user.PeriodStart,
		&user.PeriodEnd,
		&user.BillingCustomer,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = domain.UserRole(role)
	user.PlanStatus = domain.PlanStatus(planStatus)
	return &user, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
