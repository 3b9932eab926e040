// Package entitlement gates job submissions against the owning user's
// subscription plan and monthly usage counters.
package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/hifarrer/NuSong-sub002/internal/domain"
	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

// Bucket is the allowance pool a job kind draws from. Both music kinds share
// one pool.
type Bucket string

const (
	BucketMusic Bucket = "music"
	BucketImage Bucket = "image"
	BucketVideo Bucket = "video"
)

// BucketFor maps a job kind to its allowance pool.
func BucketFor(kind domain.JobKind) Bucket {
	switch kind {
	case domain.JobKindTextToMusic, domain.JobKindAudioToMusic:
		return BucketMusic
	case domain.JobKindImage:
		return BucketImage
	default:
		return BucketVideo
	}
}

// Reservation identifies one consumed allowance unit so it can be released if
// the submission does not go through.
type Reservation struct {
	UserID      string
	Bucket      Bucket
	PeriodStart time.Time
	Used        int
	Max         int
}

// Remaining returns the allowance left after this reservation.
func (r Reservation) Remaining() int {
	if r.Max <= r.Used {
		return 0
	}
	return r.Max - r.Used
}

// Gate enforces plan entitlements over the usage_counters table.
type Gate struct {
	sql infra.SQLExecutor
}

// NewGate builds an entitlement gate over the given executor.
func NewGate(sql infra.SQLExecutor) *Gate {
	return &Gate{sql: sql}
}

// CheckAndReserve verifies the user's plan and atomically consumes one unit of
// the kind's monthly allowance. Plan problems are reported before any counter
// is touched, so a denial never consumes quota. The counter increment is a
// single guarded statement, never a read-then-write pair.
func (g *Gate) CheckAndReserve(ctx context.Context, userID string, kind domain.JobKind) (*Reservation, error) {
	bucket := BucketFor(kind)

	row := g.sql.QueryRow(ctx, sqlinline.QSelectEntitlement, userID, string(bucket))
	var (
		planStatus  string
		periodStart time.Time
		periodEnd   time.Time
		maxAllowed  int
		planActive  bool
	)
	if err := row.Scan(&planStatus, &periodStart, &periodEnd, &maxAllowed, &planActive); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrPlanInactive
		}
		return nil, fmt.Errorf("load entitlement: %w", err)
	}
	if !planActive || domain.PlanStatus(planStatus) != domain.PlanStatusActive {
		return nil, domain.ErrPlanInactive
	}
	if !periodEnd.After(time.Now()) {
		return nil, domain.ErrPlanExpired
	}
	if maxAllowed <= 0 {
		return nil, domain.ErrQuotaExceeded
	}

	reserveRow := g.sql.QueryRow(ctx, sqlinline.QReserveUsage, userID, string(bucket), periodStart, maxAllowed)
	var used int
	if err := reserveRow.Scan(&used); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrQuotaExceeded
		}
		return nil, fmt.Errorf("reserve usage: %w", err)
	}
	return &Reservation{
		UserID:      userID,
		Bucket:      bucket,
		PeriodStart: periodStart,
		Used:        used,
		Max:         maxAllowed,
	}, nil
}

// Release is the compensating action for CheckAndReserve: it returns the
// reserved unit when job creation fails after the counter was consumed.
func (g *Gate) Release(ctx context.Context, res *Reservation) error {
	if res == nil {
		return nil
	}
	if _, err := g.sql.Exec(ctx, sqlinline.QReleaseUsage, res.UserID, string(res.Bucket), res.PeriodStart); err != nil {
		return fmt.Errorf("release usage: %w", err)
	}
	return nil
}

// UsageSummary reports consumed units per bucket for the user's current period.
func (g *Gate) UsageSummary(ctx context.Context, userID string) (map[Bucket]int, error) {
	rows, err := g.sql.Query(ctx, sqlinline.QSelectUsageSummary, userID)
	if err != nil {
		return nil, fmt.Errorf("usage summary: %w", err)
	}
	defer rows.Close()
	out := map[Bucket]int{BucketMusic: 0, BucketImage: 0, BucketVideo: 0}
	for rows.Next() {
		var bucket string
		var used int
		if err := rows.Scan(&bucket, &used); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out[Bucket(bucket)] = used
	}
	return out, rows.Err()
}
