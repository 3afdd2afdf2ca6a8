package echoapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/content"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/training"
	"github.com/trezcool/forma/core/user"
	"github.com/trezcool/forma/tests"
)

func TestMemberContentAPI_Programs(t *testing.T) {
	srv, app := setup()
	ctx := testContext()
	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "the_admin", "admin@forma.test", "", []string{user.RoleAdmin}, true)
	member := testutil.CreateUser(t, app.UserRepo, "Member", "a_member", "member@forma.test", "", []string{user.RoleMember}, true)
	gold := testutil.CreateMembership(t, app.MembershipSvc, "Gold", 5000, 30)
	memberToken := getToken(t, app, member)
	adminToken := getToken(t, app, admin)

	free, err := app.TrainingSvc.CreateProgram(ctx, training.NewProgram{Name: "Starter", DurationWeeks: 2, Published: true})
	require.NoError(t, err)
	gated, err := app.TrainingSvc.CreateProgram(ctx, training.NewProgram{
		Name:          "Hypertrophy",
		DurationWeeks: 8,
		MembershipID:  core.StringPtr(gold.ID),
		Published:     true,
	})
	require.NoError(t, err)
	draft, err := app.TrainingSvc.CreateProgram(ctx, training.NewProgram{Name: "Draft", DurationWeeks: 4})
	require.NoError(t, err)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/v1/content/programs",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "free program",
			method:   http.MethodGet,
			path:     "/v1/content/programs/" + free.ID,
			token:    memberToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "gated program without subscription",
			method:   http.MethodGet,
			path:     "/v1/content/programs/" + gated.ID,
			token:    memberToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "unpublished program",
			method:   http.MethodGet,
			path:     "/v1/content/programs/" + draft.ID,
			token:    memberToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "admin sees unpublished program",
			method:   http.MethodGet,
			path:     "/v1/content/programs/" + draft.ID,
			token:    adminToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "admin bypasses membership",
			method:   http.MethodGet,
			path:     "/v1/content/programs/" + gated.ID,
			token:    adminToken,
			wantCode: http.StatusOK,
		},
	})

	rec := do(srv, http.MethodGet, "/v1/content/programs?published=false", memberToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list struct {
		Count   int                `json:"count"`
		Results []training.Program `json:"results"`
	}
	unmarshallObj(t, rec, &list)
	assert.Equal(t, 2, list.Count)
	for _, p := range list.Results {
		assert.True(t, p.Published)
	}

	_, err = app.MembershipSvc.Subscribe(ctx, membership.NewSubscription{UserID: member.ID, MembershipID: gold.ID})
	require.NoError(t, err)

	rec = do(srv, http.MethodGet, "/v1/content/programs/"+gated.ID, memberToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sched training.Schedule
	unmarshallObj(t, rec, &sched)
	assert.Equal(t, gated.ID, sched.Program.ID)
}

func TestMemberContentAPI_Lessons(t *testing.T) {
	srv, app := setup()
	ctx := testContext()
	member := testutil.CreateUser(t, app.UserRepo, "Member", "a_member", "member@forma.test", "", []string{user.RoleMember}, true)
	gold := testutil.CreateMembership(t, app.MembershipSvc, "Gold", 5000, 30)
	token := getToken(t, app, member)

	course, err := app.ContentSvc.CreateCourse(ctx, content.NewCourse{
		Title:        "Mobility",
		MembershipID: core.StringPtr(gold.ID),
		Published:    true,
	})
	require.NoError(t, err)
	lesson, err := app.ContentSvc.AddLesson(ctx, course.ID, content.NewLesson{Title: "Hips", VideoID: "vid-1"})
	require.NoError(t, err)

	// without access the lesson is shown but the video is not
	rec := do(srv, http.MethodGet, "/v1/content/lessons/"+lesson.ID, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view content.LessonView
	unmarshallObj(t, rec, &view)
	assert.Equal(t, "Hips", view.Title)
	assert.Empty(t, view.VideoID)
	assert.Empty(t, view.VideoURL)

	rec = do(srv, http.MethodGet, "/v1/content/courses/"+course.ID, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err = app.MembershipSvc.Subscribe(ctx, membership.NewSubscription{UserID: member.ID, MembershipID: gold.ID})
	require.NoError(t, err)

	rec = do(srv, http.MethodGet, "/v1/content/lessons/"+lesson.ID, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = content.LessonView{}
	unmarshallObj(t, rec, &view)
	assert.Empty(t, view.VideoID)
	assert.True(t, strings.HasPrefix(view.VideoURL, "https://iframe.mediadelivery.net/embed/4242/vid-1?"), view.VideoURL)
	assert.NotNil(t, view.VideoExpiresAt)

	rec = do(srv, http.MethodGet, "/v1/content/courses/"+course.ID, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var c content.Course
	unmarshallObj(t, rec, &c)
	require.Len(t, c.Lessons, 1)
	assert.Empty(t, c.Lessons[0].VideoID)

	rec = do(srv, http.MethodGet, "/v1/content/lessons/nope", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemberContentAPI_FAQs(t *testing.T) {
	srv, app := setup()
	ctx := testContext()
	member := testutil.CreateUser(t, app.UserRepo, "Member", "a_member", "member@forma.test", "", []string{user.RoleMember}, true)

	for _, nf := range []content.NewFAQ{
		{Question: "Can I pause?", Answer: "Yes.", Category: "billing", Published: true},
		{Question: "Refunds?", Answer: "Within 14 days.", Category: "billing", Published: true},
		{Question: "Hidden?", Answer: "Draft.", Category: "billing"},
	} {
		_, err := app.ContentSvc.CreateFAQ(ctx, nf)
		require.NoError(t, err)
	}

	rec := do(srv, http.MethodGet, "/v1/content/faqs?category=billing", getToken(t, app, member))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list struct {
		Count int `json:"count"`
	}
	unmarshallObj(t, rec, &list)
	assert.Equal(t, 2, list.Count)
}
