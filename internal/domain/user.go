package domain

import "time"

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// PlanStatus enumerates subscription lifecycle states as reported by the
// billing provider.
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusPastDue  PlanStatus = "past_due"
	PlanStatusCanceled PlanStatus = "canceled"
)

// User represents an account within the platform.
type User struct {
	ID             string
	GoogleSub      string
	Email          string
	Name           string
	Picture        string
	Role           UserRole
	PlanID         string
	PlanStatus     PlanStatus
	PeriodStart    time.Time
	PeriodEnd      time.Time
	BillingCustomer string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// UsageCounter tracks consumed generations for one user, kind and billing period.
type UsageCounter struct {
	UserID      string
	Kind        JobKind
	PeriodStart time.Time
	Used        int
}
