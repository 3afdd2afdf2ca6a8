package membership

import (
	"encoding/json"
	"time"

	"github.com/trezcool/forma/core"
)

// Subscription statuses
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

var (
	OrderingFields             = []string{"name", "price_cents", "duration_days", "is_active", "created_at"}
	SubscriptionOrderingFields = []string{"starts_at", "ends_at", "created_at", "status"}
)

// Membership is a purchasable plan gating access to programs, nutrition plans and courses.
type Membership struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Description     string    `json:"description" db:"description"`
	PriceCents      int64     `json:"price_cents" db:"price_cents"`
	DurationDays    int       `json:"duration_days" db:"duration_days"`
	DiscountPercent int       `json:"discount_percent" db:"discount_percent"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// EffectivePriceCents applies the discount, rounding half-up to the cent.
func (m Membership) EffectivePriceCents() int64 {
	return (m.PriceCents*int64(100-m.DiscountPercent) + 50) / 100
}

func (m Membership) MarshalJSON() ([]byte, error) {
	type alias Membership
	return json.Marshal(struct {
		alias
		EffectivePriceCents int64 `json:"effective_price_cents"`
	}{alias(m), m.EffectivePriceCents()})
}

type Subscription struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"user_id" db:"user_id"`
	MembershipID   string     `json:"membership_id" db:"membership_id"`
	StartsAt       time.Time  `json:"starts_at" db:"starts_at"` // UTC
	EndsAt         time.Time  `json:"ends_at" db:"ends_at"`     // UTC
	PricePaidCents int64      `json:"price_paid_cents" db:"price_paid_cents"`
	Status         string     `json:"status" db:"status"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	CancelledAt    *time.Time `json:"cancelled_at" db:"cancelled_at"`
}

// IsActiveAt reports whether the subscription grants access at t.
// The window is half-open: [StartsAt, EndsAt).
func (s Subscription) IsActiveAt(t time.Time) bool {
	return s.Status == StatusActive && !t.Before(s.StartsAt) && t.Before(s.EndsAt)
}

// NewMembership contains information needed to create or replace a Membership.
type NewMembership struct {
	Name            string `json:"name" validate:"notblank"`
	Description     string `json:"description"`
	PriceCents      int64  `json:"price_cents" validate:"min=0"`
	DurationDays    int    `json:"duration_days" validate:"min=1"`
	DiscountPercent int    `json:"discount_percent" validate:"min=0,max=100"`
	IsActive        *bool  `json:"is_active"`
}

func (nm *NewMembership) Validate() error {
	nm.Name = core.CleanString(nm.Name)
	nm.Description = core.CleanString(nm.Description)
	return core.Validate.Struct(nm)
}

// NewSubscription is what an admin provides to assign a membership to a user.
// A zero StartsAt means now.
type NewSubscription struct {
	UserID       string    `json:"user_id" validate:"required"`
	MembershipID string    `json:"membership_id" validate:"required"`
	StartsAt     time.Time `json:"starts_at"`
}

func (ns *NewSubscription) Validate() error {
	ns.UserID = core.CleanString(ns.UserID)
	ns.MembershipID = core.CleanString(ns.MembershipID)
	return core.Validate.Struct(ns)
}

type QueryFilter struct {
	Search   string
	IsActive *bool
}

type SubscriptionFilter struct {
	UserID       string
	MembershipID string
	Status       string
}
