package membership

import (
	"context"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/user"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("membership")
	ErrSubscriptionNotFound = core.NewNotFoundError("subscription")
	ErrHasSubscriptions     = core.NewConflictError("membership has subscriptions and cannot be deleted")
	ErrInactiveMembership   = errors.New("this membership is not available")
	ErrAlreadyCancelled     = errors.New("subscription is already cancelled")
)

// EmailActivated is the template key of the email sent on subscription.
const EmailActivated = "membership_activated"

type (
	Repository interface {
		CreateMembership(ctx context.Context, m Membership) (Membership, error)
		QueryMemberships(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Membership, int, error)
		GetMembership(ctx context.Context, id string) (Membership, error)
		UpdateMembership(ctx context.Context, m Membership) (Membership, error)
		DeleteMembership(ctx context.Context, id string) error
		CountSubscriptions(ctx context.Context, membershipID string) (int, error)

		CreateSubscription(ctx context.Context, s Subscription) (Subscription, error)
		QuerySubscriptions(ctx context.Context, filter SubscriptionFilter, ordering []core.DBOrdering, page core.Page) ([]Subscription, int, error)
		GetSubscription(ctx context.Context, id string) (Subscription, error)
		UpdateSubscription(ctx context.Context, s Subscription) (Subscription, error)
	}

	// UserGetter finds the user a subscription is for.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service interface {
		Create(ctx context.Context, nm NewMembership) (Membership, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Membership, int, error)
		GetByID(ctx context.Context, id string) (Membership, error)
		Update(ctx context.Context, m Membership, nm NewMembership) (Membership, error)
		Delete(ctx context.Context, id string) error

		Subscribe(ctx context.Context, ns NewSubscription) (Subscription, error)
		Cancel(ctx context.Context, subscriptionID string) (Subscription, error)
		QuerySubscriptions(ctx context.Context, filter SubscriptionFilter, ordering []core.DBOrdering, page core.Page) ([]Subscription, int, error)
		GetSubscription(ctx context.Context, id string) (Subscription, error)
		ActiveFor(ctx context.Context, userID string, at time.Time) ([]Subscription, error)
		HasAccess(ctx context.Context, userID, membershipID string, at time.Time) (bool, error)
	}

	service struct {
		repo     Repository
		tx       core.Transactor
		users    UserGetter
		mailSvc  core.EmailService
		composer core.MailComposer
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	tx core.Transactor,
	users UserGetter,
	mailSvc core.EmailService,
	composer core.MailComposer,
	logger core.Logger,
) Service {
	return &service{
		repo:     repo,
		tx:       tx,
		users:    users,
		mailSvc:  mailSvc,
		composer: composer,
		logger:   logger,
	}
}

func (svc *service) Create(ctx context.Context, nm NewMembership) (Membership, error) {
	now := core.NowFunc().UTC()
	m := Membership{CreatedAt: now}
	m = apply(m, nm)
	m.UpdatedAt = now
	return svc.repo.CreateMembership(ctx, m)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, page core.Page) ([]Membership, int, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryMemberships(ctx, filter, ordering, page)
}

func (svc *service) GetByID(ctx context.Context, id string) (Membership, error) {
	return svc.repo.GetMembership(ctx, id)
}

func (svc *service) Update(ctx context.Context, m Membership, nm NewMembership) (Membership, error) {
	m = apply(m, nm)
	m.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateMembership(ctx, m)
}

func apply(m Membership, nm NewMembership) Membership {
	m.Name = nm.Name
	m.Description = nm.Description
	m.PriceCents = nm.PriceCents
	m.DurationDays = nm.DurationDays
	m.DiscountPercent = nm.DiscountPercent
	if nm.IsActive != nil {
		m.IsActive = *nm.IsActive
	} else if m.ID == "" {
		m.IsActive = true
	}
	return m
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := svc.repo.CountSubscriptions(ctx, id)
		if err != nil {
			return errors.Wrap(err, "counting subscriptions")
		}
		if n > 0 {
			return ErrHasSubscriptions
		}
		return svc.repo.DeleteMembership(ctx, id)
	})
}

func (svc *service) Subscribe(ctx context.Context, ns NewSubscription) (Subscription, error) {
	usr, err := svc.users.GetByID(ctx, ns.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return Subscription{}, core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "user not found"})
		}
		return Subscription{}, errors.Wrap(err, "finding user by ID")
	}
	m, err := svc.repo.GetMembership(ctx, ns.MembershipID)
	if err != nil {
		if core.IsNotFound(err) {
			return Subscription{}, core.NewValidationError(nil, core.FieldError{Field: "membership_id", Error: "membership not found"})
		}
		return Subscription{}, errors.Wrap(err, "finding membership by ID")
	}
	if !m.IsActive {
		return Subscription{}, core.NewValidationError(nil, core.FieldError{Field: "membership_id", Error: ErrInactiveMembership.Error()})
	}

	now := core.NowFunc().UTC()
	startsAt := ns.StartsAt.UTC()
	if ns.StartsAt.IsZero() {
		startsAt = now
	}
	sub, err := svc.repo.CreateSubscription(ctx, Subscription{
		UserID:         usr.ID,
		MembershipID:   m.ID,
		StartsAt:       startsAt,
		EndsAt:         startsAt.AddDate(0, 0, m.DurationDays),
		PricePaidCents: m.EffectivePriceCents(),
		Status:         StatusActive,
		CreatedAt:      now,
	})
	if err != nil {
		return Subscription{}, errors.Wrap(err, "creating subscription")
	}

	svc.sendActivatedMail(ctx, usr, m, sub)
	return sub, nil
}

func (svc *service) sendActivatedMail(ctx context.Context, usr user.User, m Membership, sub Subscription) {
	if usr.Email == "" {
		return
	}
	msg, err := svc.composer.Compose(ctx, EmailActivated, []mail.Address{{Name: usr.Name, Address: usr.Email}}, map[string]string{
		"name":            usr.DisplayName(),
		"membership_name": m.Name,
		"starts_at":       sub.StartsAt.Format("2006-01-02"),
		"ends_at":         sub.EndsAt.Format("2006-01-02"),
		"duration_days":   strconv.Itoa(m.DurationDays),
		"price":           core.FormatCents(sub.PricePaidCents),
	})
	if err != nil {
		svc.logger.Error("composing email", errors.Wrap(err, EmailActivated), usr)
		return
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *service) Cancel(ctx context.Context, subscriptionID string) (Subscription, error) {
	var sub Subscription
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if sub, err = svc.repo.GetSubscription(ctx, subscriptionID); err != nil {
			return err
		}
		if sub.Status == StatusCancelled {
			return core.NewValidationError(ErrAlreadyCancelled)
		}
		now := core.NowFunc().UTC()
		sub.Status = StatusCancelled
		sub.CancelledAt = &now
		sub, err = svc.repo.UpdateSubscription(ctx, sub)
		return err
	})
	return sub, err
}

func (svc *service) QuerySubscriptions(ctx context.Context, filter SubscriptionFilter, ordering []core.DBOrdering, page core.Page) ([]Subscription, int, error) {
	return svc.repo.QuerySubscriptions(ctx, filter, ordering, page)
}

func (svc *service) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	return svc.repo.GetSubscription(ctx, id)
}

func (svc *service) ActiveFor(ctx context.Context, userID string, at time.Time) ([]Subscription, error) {
	subs, _, err := svc.repo.QuerySubscriptions(ctx, SubscriptionFilter{UserID: userID, Status: StatusActive}, nil, core.Page{})
	if err != nil {
		return nil, errors.Wrap(err, "querying subscriptions")
	}
	active := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if s.IsActiveAt(at) {
			active = append(active, s)
		}
	}
	return active, nil
}

func (svc *service) HasAccess(ctx context.Context, userID, membershipID string, at time.Time) (bool, error) {
	subs, _, err := svc.repo.QuerySubscriptions(ctx, SubscriptionFilter{UserID: userID, MembershipID: membershipID, Status: StatusActive}, nil, core.Page{})
	if err != nil {
		return false, errors.Wrap(err, "querying subscriptions")
	}
	for _, s := range subs {
		if s.IsActiveAt(at) {
			return true, nil
		}
	}
	return false, nil
}
