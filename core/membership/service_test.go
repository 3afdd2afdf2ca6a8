package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/tests"
)

func TestMembership_EffectivePriceCents(t *testing.T) {
	tests := []struct {
		price    int64
		discount int
		want     int64
	}{
		{price: 4999, discount: 0, want: 4999},
		{price: 4999, discount: 100, want: 0},
		{price: 1000, discount: 15, want: 850},
		{price: 999, discount: 50, want: 500}, // 499.5 rounds up
		{price: 333, discount: 10, want: 300}, // 299.7
	}
	for _, tt := range tests {
		m := membership.Membership{PriceCents: tt.price, DiscountPercent: tt.discount}
		assert.Equal(t, tt.want, m.EffectivePriceCents(), "%d at -%d%%", tt.price, tt.discount)
	}
}

func TestSubscription_IsActiveAt(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	sub := membership.Subscription{Status: membership.StatusActive, StartsAt: start, EndsAt: start.AddDate(0, 0, 30)}

	assert.False(t, sub.IsActiveAt(start.Add(-time.Second)))
	assert.True(t, sub.IsActiveAt(start))
	assert.True(t, sub.IsActiveAt(sub.EndsAt.Add(-time.Second)))
	assert.False(t, sub.IsActiveAt(sub.EndsAt))

	sub.Status = membership.StatusCancelled
	assert.False(t, sub.IsActiveAt(start))
}

func TestService_Subscribe(t *testing.T) {
	app := testutil.NewApp()
	ctx := context.Background()
	usr := testutil.CreateUser(t, app.UserRepo, "Member", "", "member@test.cd", "", nil, true)
	gold := testutil.CreateMembership(t, app.MembershipSvc, "Gold", 10000, 30)
	gold, err := app.MembershipSvc.Update(ctx, gold, membership.NewMembership{
		Name: "Gold", PriceCents: 10000, DurationDays: 30, DiscountPercent: 25,
	})
	require.NoError(t, err)
	assert.True(t, gold.IsActive, "IsActive is kept when omitted")

	retired, err := app.MembershipSvc.Create(ctx, membership.NewMembership{
		Name: "Retired", PriceCents: 100, DurationDays: 7, IsActive: core.BoolPtr(false),
	})
	require.NoError(t, err)

	start := time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC)
	t.Run("validation", func(t *testing.T) {
		_, err := app.MembershipSvc.Subscribe(ctx, membership.NewSubscription{UserID: "nope", MembershipID: gold.ID})
		assert.Equal(t, []string{"user_id"}, testutil.ErrorFields(err))
		_, err = app.MembershipSvc.Subscribe(ctx, membership.NewSubscription{UserID: usr.ID, MembershipID: "nope"})
		assert.Equal(t, []string{"membership_id"}, testutil.ErrorFields(err))
		_, err = app.MembershipSvc.Subscribe(ctx, membership.NewSubscription{UserID: usr.ID, MembershipID: retired.ID})
		assert.Equal(t, []string{"membership_id"}, testutil.ErrorFields(err))
	})

	sub, err := app.MembershipSvc.Subscribe(ctx, membership.NewSubscription{UserID: usr.ID, MembershipID: gold.ID, StartsAt: start})
	require.NoError(t, err)
	assert.Equal(t, membership.StatusActive, sub.Status)
	assert.Equal(t, start, sub.StartsAt)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), sub.EndsAt)
	assert.Equal(t, int64(7500), sub.PricePaidCents)

	sent := app.Mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, membership.EmailActivated, sent[0].TemplateKey)
	assert.Contains(t, sent[0].TextContent, "75.00")
	assert.Contains(t, sent[0].TextContent, "2024-01-31")

	// price changes do not affect existing subscriptions
	_, err = app.MembershipSvc.Update(ctx, gold, membership.NewMembership{Name: "Gold", PriceCents: 20000, DurationDays: 30})
	require.NoError(t, err)
	got, err := app.MembershipSvc.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), got.PricePaidCents)

	ok, err := app.MembershipSvc.HasAccess(ctx, usr.ID, gold.ID, start.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = app.MembershipSvc.HasAccess(ctx, usr.ID, gold.ID, sub.EndsAt)
	require.NoError(t, err)
	assert.False(t, ok)

	active, err := app.MembershipSvc.ActiveFor(ctx, usr.ID, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, sub.ID, active[0].ID)

	// a membership with subscriptions cannot be deleted
	err = app.MembershipSvc.Delete(ctx, gold.ID)
	assert.True(t, core.IsConflict(err))
	assert.NoError(t, app.MembershipSvc.Delete(ctx, retired.ID))
	_, err = app.MembershipSvc.GetByID(ctx, retired.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_Cancel(t *testing.T) {
	app := testutil.NewApp()
	ctx := context.Background()
	usr := testutil.CreateUser(t, app.UserRepo, "Member", "", "", "", nil, true)
	m := testutil.CreateMembership(t, app.MembershipSvc, "Basic", 2000, 30)

	now := time.Now().UTC()
	sub, err := app.MembershipSvc.Subscribe(ctx, membership.NewSubscription{UserID: usr.ID, MembershipID: m.ID})
	require.NoError(t, err)
	assert.Empty(t, app.Mail.Sent(), "no email without an address")

	cancelled, err := app.MembershipSvc.Cancel(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = app.MembershipSvc.Cancel(ctx, sub.ID)
	assert.Error(t, err)
	_, err = app.MembershipSvc.Cancel(ctx, "unknown")
	assert.True(t, core.IsNotFound(err))

	ok, err := app.MembershipSvc.HasAccess(ctx, usr.ID, m.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_Query(t *testing.T) {
	app := testutil.NewApp()
	ctx := context.Background()
	basic := testutil.CreateMembership(t, app.MembershipSvc, "Basic", 2000, 30)
	gold := testutil.CreateMembership(t, app.MembershipSvc, "Gold", 5000, 30)
	yearly := testutil.CreateMembership(t, app.MembershipSvc, "Gold Yearly", 50000, 365)

	tests := []struct {
		name      string
		filter    membership.QueryFilter
		ordering  []core.DBOrdering
		page      core.Page
		wantIDs   []string
		wantTotal int
	}{
		{name: "default order is by price", wantIDs: []string{basic.ID, gold.ID, yearly.ID}, wantTotal: 3},
		{name: "search", filter: membership.QueryFilter{Search: " gold "}, wantIDs: []string{gold.ID, yearly.ID}, wantTotal: 2},
		{
			name: "by name desc", ordering: []core.DBOrdering{{Field: "name"}},
			wantIDs: []string{yearly.ID, gold.ID, basic.ID}, wantTotal: 3,
		},
		{
			name: "unknown ordering field is ignored", ordering: []core.DBOrdering{{Field: "lol", Ascending: true}},
			wantIDs: []string{basic.ID, gold.ID, yearly.ID}, wantTotal: 3,
		},
		{name: "page", page: core.Page{Number: 2, Size: 2}, wantIDs: []string{yearly.ID}, wantTotal: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, total, err := app.MembershipSvc.Query(ctx, tt.filter, tt.ordering, tt.page)
			require.NoError(t, err)
			ids := make([]string, 0, len(ms))
			for _, m := range ms {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}
