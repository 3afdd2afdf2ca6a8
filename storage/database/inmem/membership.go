package inmemdb

import (
	"context"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/content"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/training"
)

type membershipRepository struct {
	db *DB
}

var _ membership.Repository = (*membershipRepository)(nil)

func NewMembershipRepository(db *DB) membership.Repository {
	return &membershipRepository{db: db}
}

func subscriptionUserID(v interface{}) string { return v.(membership.Subscription).UserID }

func (repo *membershipRepository) CreateMembership(ctx context.Context, m membership.Membership) (membership.Membership, error) {
	defer repo.db.lock(ctx)()

	m.ID = newID()
	repo.db.tbl(tblMemberships).put(m.ID, m)
	return m, nil
}

func (repo *membershipRepository) QueryMemberships(
	ctx context.Context,
	filter membership.QueryFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]membership.Membership, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ms := make([]membership.Membership, 0)
	repo.db.tbl(tblMemberships).each(func(v interface{}) {
		m := v.(membership.Membership)
		if filter.Search != "" && !containsFold(m.Name, filter.Search) && !containsFold(m.Description, filter.Search) {
			return
		}
		if filter.IsActive != nil && m.IsActive != *filter.IsActive {
			return
		}
		ms = append(ms, m)
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "price_cents", Ascending: true}}
	}
	orderRows(ms, core.AllowedOrdering(ordering, membership.OrderingFields), func(i int, field string) interface{} {
		switch field {
		case "name":
			return ms[i].Name
		case "price_cents":
			return ms[i].PriceCents
		case "duration_days":
			return ms[i].DurationDays
		case "is_active":
			return ms[i].IsActive
		default:
			return ms[i].CreatedAt
		}
	})

	start, end := page.Window(len(ms))
	return ms[start:end], len(ms), nil
}

func (repo *membershipRepository) GetMembership(ctx context.Context, id string) (membership.Membership, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblMemberships).get(id); ok {
		return v.(membership.Membership), nil
	}
	return membership.Membership{}, membership.ErrNotFound
}

func (repo *membershipRepository) UpdateMembership(ctx context.Context, m membership.Membership) (membership.Membership, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblMemberships).get(m.ID); !ok {
		return membership.Membership{}, membership.ErrNotFound
	}
	repo.db.tbl(tblMemberships).put(m.ID, m)
	return m, nil
}

func (repo *membershipRepository) DeleteMembership(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblMemberships).del(id) {
		return membership.ErrNotFound
	}
	// ON DELETE SET NULL
	nullMembership(repo.db, id)
	return nil
}

func (repo *membershipRepository) CountSubscriptions(ctx context.Context, membershipID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return countWhere(repo.db.tbl(tblSubscriptions), func(v interface{}) bool {
		return v.(membership.Subscription).MembershipID == membershipID
	}), nil
}

func (repo *membershipRepository) CreateSubscription(ctx context.Context, s membership.Subscription) (membership.Subscription, error) {
	defer repo.db.lock(ctx)()

	s.ID = newID()
	repo.db.tbl(tblSubscriptions).put(s.ID, s)
	return s, nil
}

func (repo *membershipRepository) QuerySubscriptions(
	ctx context.Context,
	filter membership.SubscriptionFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]membership.Subscription, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]membership.Subscription, 0)
	repo.db.tbl(tblSubscriptions).each(func(v interface{}) {
		s := v.(membership.Subscription)
		if (filter.UserID != "" && s.UserID != filter.UserID) ||
			(filter.MembershipID != "" && s.MembershipID != filter.MembershipID) ||
			(filter.Status != "" && s.Status != filter.Status) {
			return
		}
		subs = append(subs, s)
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "starts_at"}}
	}
	orderRows(subs, core.AllowedOrdering(ordering, membership.SubscriptionOrderingFields), func(i int, field string) interface{} {
		switch field {
		case "starts_at":
			return subs[i].StartsAt
		case "ends_at":
			return subs[i].EndsAt
		case "status":
			return subs[i].Status
		default:
			return subs[i].CreatedAt
		}
	})

	start, end := page.Window(len(subs))
	return subs[start:end], len(subs), nil
}

func (repo *membershipRepository) GetSubscription(ctx context.Context, id string) (membership.Subscription, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblSubscriptions).get(id); ok {
		return v.(membership.Subscription), nil
	}
	return membership.Subscription{}, membership.ErrSubscriptionNotFound
}

func (repo *membershipRepository) UpdateSubscription(ctx context.Context, s membership.Subscription) (membership.Subscription, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblSubscriptions).get(s.ID); !ok {
		return membership.Subscription{}, membership.ErrSubscriptionNotFound
	}
	repo.db.tbl(tblSubscriptions).put(s.ID, s)
	return s, nil
}

// nullMembership clears the references to a deleted membership.
func nullMembership(db *DB, id string) {
	isRef := func(ref *string) bool { return ref != nil && *ref == id }

	for _, k := range db.tbl(tblPrograms).keys {
		p := db.tbl(tblPrograms).rows[k].(training.Program)
		if isRef(p.MembershipID) {
			p.MembershipID = nil
			db.tbl(tblPrograms).put(k, p)
		}
	}
	for _, k := range db.tbl(tblPlans).keys {
		p := db.tbl(tblPlans).rows[k].(nutrition.Plan)
		if isRef(p.MembershipID) {
			p.MembershipID = nil
			db.tbl(tblPlans).put(k, p)
		}
	}
	for _, k := range db.tbl(tblCourses).keys {
		c := db.tbl(tblCourses).rows[k].(content.Course)
		if isRef(c.MembershipID) {
			c.MembershipID = nil
			db.tbl(tblCourses).put(k, c)
		}
	}
}
