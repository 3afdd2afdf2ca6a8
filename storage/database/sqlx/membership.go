package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/membership"
)

const (
	membershipColumns   = "id, name, description, price_cents, duration_days, discount_percent, is_active, created_at, updated_at"
	subscriptionColumns = "id, user_id, membership_id, starts_at, ends_at, price_paid_cents, status, created_at, cancelled_at"
)

type membershipRepository struct {
	repository
}

var _ membership.Repository = (*membershipRepository)(nil)

func NewMembershipRepository(db *sqlx.DB) membership.Repository {
	return &membershipRepository{repository{db: db}}
}

func (repo *membershipRepository) CreateMembership(ctx context.Context, m membership.Membership) (membership.Membership, error) {
	m.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO memberships (`+membershipColumns+`)
		VALUES (:id, :name, :description, :price_cents, :duration_days, :discount_percent, :is_active, :created_at, :updated_at)`,
		m,
	)
	if err != nil {
		return membership.Membership{}, errors.Wrap(err, "inserting membership")
	}
	return m, nil
}

func (repo *membershipRepository) QueryMemberships(
	ctx context.Context,
	filter membership.QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]membership.Membership, int, error) {
	var w conds
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(name ILIKE ? OR description ILIKE ?)", p, p)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	ms := make([]membership.Membership, 0)
	order := orderBy(ordering, membership.OrderingFields, "price_cents ASC")
	total, err := queryPage(ctx, repo.ext(ctx), &ms, membershipColumns, "memberships", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying memberships")
	}
	return ms, total, nil
}

func (repo *membershipRepository) GetMembership(ctx context.Context, id string) (membership.Membership, error) {
	var m membership.Membership
	err := get(ctx, repo.ext(ctx), &m, membership.ErrNotFound, "SELECT "+membershipColumns+" FROM memberships WHERE id = ?", id)
	return m, err
}

func (repo *membershipRepository) UpdateMembership(ctx context.Context, m membership.Membership) (membership.Membership, error) {
	err := namedExec(ctx, repo.ext(ctx), membership.ErrNotFound, `
		UPDATE memberships SET
			name = :name, description = :description, price_cents = :price_cents, duration_days = :duration_days,
			discount_percent = :discount_percent, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`,
		m,
	)
	if err != nil {
		return membership.Membership{}, err
	}
	return m, nil
}

func (repo *membershipRepository) DeleteMembership(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), membership.ErrNotFound, "DELETE FROM memberships WHERE id = ?", id)
}

func (repo *membershipRepository) CountSubscriptions(ctx context.Context, membershipID string) (int, error) {
	return count(ctx, repo.ext(ctx), "SELECT COUNT(*) FROM subscriptions WHERE membership_id = ?", membershipID)
}

func (repo *membershipRepository) CreateSubscription(ctx context.Context, s membership.Subscription) (membership.Subscription, error) {
	s.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (:id, :user_id, :membership_id, :starts_at, :ends_at, :price_paid_cents, :status, :created_at, :cancelled_at)`,
		s,
	)
	if err != nil {
		return membership.Subscription{}, errors.Wrap(err, "inserting subscription")
	}
	return s, nil
}

func (repo *membershipRepository) QuerySubscriptions(
	ctx context.Context,
	filter membership.SubscriptionFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]membership.Subscription, int, error) {
	var w conds
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.MembershipID != "" {
		w.add("membership_id = ?", filter.MembershipID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	subs := make([]membership.Subscription, 0)
	order := orderBy(ordering, membership.SubscriptionOrderingFields, "starts_at DESC")
	total, err := queryPage(ctx, repo.ext(ctx), &subs, subscriptionColumns, "subscriptions", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying subscriptions")
	}
	return subs, total, nil
}

func (repo *membershipRepository) GetSubscription(ctx context.Context, id string) (membership.Subscription, error) {
	var s membership.Subscription
	err := get(ctx, repo.ext(ctx), &s, membership.ErrSubscriptionNotFound, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id)
	return s, err
}

func (repo *membershipRepository) UpdateSubscription(ctx context.Context, s membership.Subscription) (membership.Subscription, error) {
	err := namedExec(ctx, repo.ext(ctx), membership.ErrSubscriptionNotFound, `
		UPDATE subscriptions SET
			starts_at = :starts_at, ends_at = :ends_at, price_paid_cents = :price_paid_cents,
			status = :status, cancelled_at = :cancelled_at
		WHERE id = :id`,
		s,
	)
	if err != nil {
		return membership.Subscription{}, err
	}
	return s, nil
}
