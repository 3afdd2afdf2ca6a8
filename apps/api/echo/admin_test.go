package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core/emailtmpl"
	"github.com/trezcool/forma/core/membership"
	"github.com/trezcool/forma/core/nutrition"
	"github.com/trezcool/forma/core/training"
	"github.com/trezcool/forma/core/user"
	"github.com/trezcool/forma/tests"
)

func TestAdminAPI_StaleToken(t *testing.T) {
	srv, app := setup()
	owner := testutil.CreateUser(t, app.UserRepo, "Owner", "the_owner", "owner@forma.test", "", []string{user.RoleAdminOwner}, true)
	coach := testutil.CreateUser(t, app.UserRepo, "Coach", "the_coach", "coach@forma.test", "", []string{user.RoleAdminCoach}, true)
	ownerToken := getToken(t, app, owner)
	coachToken := getToken(t, app, coach)

	// tokens issued before the account changes
	owner.IsActive = false
	_, err := app.UserRepo.UpdateUser(context.Background(), owner)
	require.NoError(t, err)
	coach.Roles = []string{user.RoleMember}
	_, err = app.UserRepo.UpdateUser(context.Background(), coach)
	require.NoError(t, err)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "deactivated admin",
			method:   http.MethodGet,
			path:     "/v1/admin/memberships",
			token:    ownerToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "demoted admin",
			method:   http.MethodGet,
			path:     "/v1/admin/exercises",
			token:    coachToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
	})
}

func TestMembershipAPI(t *testing.T) {
	srv, app := setup()
	owner := testutil.CreateUser(t, app.UserRepo, "Owner", "the_owner", "owner@forma.test", "", []string{user.RoleAdminOwner}, true)
	coach := testutil.CreateUser(t, app.UserRepo, "Coach", "the_coach", "coach@forma.test", "", []string{user.RoleAdminCoach}, true)
	member := testutil.CreateUser(t, app.UserRepo, "Member", "a_member", "member@forma.test", "", []string{user.RoleMember}, true)
	token := getToken(t, app, owner)

	// coaches do not manage memberships
	rec := do(srv, http.MethodGet, "/v1/admin/memberships", getToken(t, app, coach))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(srv, http.MethodPost, "/v1/admin/memberships", token, []byte(`{"name":" ","duration_days":0,"discount_percent":120}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var fields map[string]string
	unmarshallObj(t, rec, &fields)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "duration_days")
	assert.Contains(t, fields, "discount_percent")

	rec = do(srv, http.MethodPost, "/v1/admin/memberships", token, []byte(`{
		"name": "Gold",
		"price_cents": 10000,
		"duration_days": 30,
		"discount_percent": 15,
		"is_active": true
	}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m struct {
		membership.Membership
		EffectivePriceCents int64 `json:"effective_price_cents"`
	}
	unmarshallObj(t, rec, &m)
	assert.Equal(t, int64(8500), m.EffectivePriceCents)

	rec = do(srv, http.MethodPost, "/v1/admin/subscriptions", token, marshallObj(t, membership.NewSubscription{
		UserID:       member.ID,
		MembershipID: m.ID,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub membership.Subscription
	unmarshallObj(t, rec, &sub)
	assert.Equal(t, int64(8500), sub.PricePaidCents)
	assert.Equal(t, membership.StatusActive, sub.Status)
	assert.Equal(t, 30*24.0, sub.EndsAt.Sub(sub.StartsAt).Hours())

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "subscribe unknown user",
			method:   http.MethodPost,
			path:     "/v1/admin/subscriptions",
			body:     []byte(`{"user_id":"nope","membership_id":"` + m.ID + `"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"user_id":"user not found"}`),
		},
		{
			name:     "delete membership with subscriptions",
			method:   http.MethodDelete,
			path:     "/v1/admin/memberships/" + m.ID,
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "membership has subscriptions and cannot be deleted"}),
		},
		{
			name:     "unknown membership",
			method:   http.MethodGet,
			path:     "/v1/admin/memberships/nope",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "membership not found"}),
		},
		{
			name:     "cancel",
			method:   http.MethodPost,
			path:     "/v1/admin/subscriptions/" + sub.ID + "/cancel",
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "cancel twice",
			method:   http.MethodPost,
			path:     "/v1/admin/subscriptions/" + sub.ID + "/cancel",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "subscription is already cancelled"}),
		},
	})

	rec = do(srv, http.MethodGet, "/v1/admin/subscriptions?user_id="+member.ID+"&status=cancelled", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	unmarshallObj(t, rec, &list)
	assert.Equal(t, 1, list.Count)
}

func TestTrainingAPI_Scheduling(t *testing.T) {
	srv, app := setup()
	coach := testutil.CreateUser(t, app.UserRepo, "Coach", "the_coach", "coach@forma.test", "", []string{user.RoleAdminCoach}, true)
	member := testutil.CreateUser(t, app.UserRepo, "Member", "a_member", "member@forma.test", "", []string{user.RoleMember}, true)
	token := getToken(t, app, coach)
	ctx := context.Background()

	squat := testutil.CreateExercise(t, app.TrainingSvc, "Squat", "legs")
	bench := testutil.CreateExercise(t, app.TrainingSvc, "Bench press", "chest")
	legDay, err := app.TrainingSvc.CreateWorkout(ctx, training.NewWorkout{
		Name:      "Leg day",
		Exercises: []training.NewWorkoutExercise{{ExerciseID: squat.ID, Sets: 5, Reps: "5"}},
	})
	require.NoError(t, err)

	rec := do(srv, http.MethodPost, "/v1/admin/programs", getToken(t, app, member), []byte(`{"name":"Strength","duration_weeks":4}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(srv, http.MethodPost, "/v1/admin/programs", token, []byte(`{"name":"Strength","duration_weeks":4}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var prog training.Program
	unmarshallObj(t, rec, &prog)
	base := "/v1/admin/programs/" + prog.ID

	rec = do(srv, http.MethodPost, base+"/periods", token, []byte(`{"name":"Base","start_week":1,"end_week":2}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "overlapping period",
			method:   http.MethodPost,
			path:     base + "/periods",
			body:     []byte(`{"name":"Peak","start_week":2,"end_week":3}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"start_week":"overlaps period \"Base\" (weeks 1-2)"}`),
		},
		{
			name:     "period past the program end",
			method:   http.MethodPost,
			path:     base + "/periods",
			body:     []byte(`{"name":"Peak","start_week":3,"end_week":5}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"end_week":"must be less than or equal to the program duration (4 weeks)"}`),
		},
		{
			name:     "unknown program",
			method:   http.MethodGet,
			path:     "/v1/admin/programs/nope/schedule",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "program not found"}),
		},
	})

	rec = do(srv, http.MethodGet, base+"/schedule", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sched training.Schedule
	unmarshallObj(t, rec, &sched)
	require.Len(t, sched.Periods, 1)
	require.Len(t, sched.Periods[0].Weeks, 2)

	// the same workout scheduled on both weeks
	var pws []training.ProgramWorkout
	for _, w := range sched.Periods[0].Weeks {
		rec = do(srv, http.MethodPost, base+"/weeks/"+w.ID+"/workouts", token, marshallObj(t, training.NewProgramWorkout{
			WorkoutID: legDay.ID,
			DayOfWeek: 1,
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var pw training.ProgramWorkout
		unmarshallObj(t, rec, &pw)
		pws = append(pws, pw)
	}

	// editing through week 1 copies the shared workout
	rec = do(srv, http.MethodPut, base+"/workouts/"+pws[0].ID+"/exercises", token, marshallObj(t, training.WorkoutExercisesUpdate{
		Exercises: []training.NewWorkoutExercise{{ExerciseID: bench.ID, Sets: 3, Reps: "10"}},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var edited ProgramWorkoutResponse
	unmarshallObj(t, rec, &edited)
	assert.NotEqual(t, legDay.ID, edited.Workout.ID)
	assert.Equal(t, "Leg day", edited.Workout.Name)
	assert.Equal(t, edited.Workout.ID, edited.ProgramWorkout.WorkoutID)
	require.Len(t, edited.Workout.Exercises, 1)
	assert.Equal(t, bench.ID, edited.Workout.Exercises[0].ExerciseID)

	rec = do(srv, http.MethodGet, "/v1/admin/workouts/"+legDay.ID, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var orig training.Workout
	unmarshallObj(t, rec, &orig)
	require.Len(t, orig.Exercises, 1)
	assert.Equal(t, squat.ID, orig.Exercises[0].ExerciseID)

	// week 2 still schedules the original
	runHTTPTests(t, srv, []httpTest{
		{
			name:     "delete scheduled workout",
			method:   http.MethodDelete,
			path:     "/v1/admin/workouts/" + legDay.ID,
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "workout is scheduled in programs and cannot be deleted"}),
		},
		{
			name:     "delete exercise in use",
			method:   http.MethodDelete,
			path:     "/v1/admin/exercises/" + squat.ID,
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "exercise is used by workouts or workout logs and cannot be deleted"}),
		},
		{
			name:     "unschedule",
			method:   http.MethodDelete,
			path:     base + "/workouts/" + pws[1].ID,
			token:    token,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete unscheduled workout",
			method:   http.MethodDelete,
			path:     "/v1/admin/workouts/" + legDay.ID,
			token:    token,
			wantCode: http.StatusNoContent,
		},
	})
}

func TestNutritionAPI_PlanMacros(t *testing.T) {
	srv, app := setup()
	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "the_admin", "admin@forma.test", "", []string{user.RoleAdmin}, true)
	token := getToken(t, app, admin)
	rice := testutil.CreateIngredient(t, app.NutritionSvc, "Rice", nutrition.Macros{Calories: 200, Protein: 10, Carbs: 20, Fat: 5, Fiber: 2})

	rec := do(srv, http.MethodPost, "/v1/admin/nutrition-plans", token, []byte(`{"name":"Cut"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plan nutrition.Plan
	unmarshallObj(t, rec, &plan)
	base := "/v1/admin/nutrition-plans/" + plan.ID

	rec = do(srv, http.MethodPost, base+"/days", token, []byte(`{"name":"Monday"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var day nutrition.Day
	unmarshallObj(t, rec, &day)
	assert.Equal(t, 1, day.Number)

	rec = do(srv, http.MethodPost, base+"/days/"+day.ID+"/meals", token, []byte(`{"name":"Lunch"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var meal nutrition.Meal
	unmarshallObj(t, rec, &meal)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "zero quantity",
			method:   http.MethodPost,
			path:     base + "/meals/" + meal.ID + "/items",
			body:     []byte(`{"ingredient_id":"` + rice.ID + `","quantity_grams":0}`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown ingredient",
			method:   http.MethodPost,
			path:     base + "/meals/" + meal.ID + "/items",
			body:     []byte(`{"ingredient_id":"nope","quantity_grams":10}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"ingredient_id":"ingredient nope not found"}`),
		},
		{
			name:     "add item",
			method:   http.MethodPost,
			path:     base + "/meals/" + meal.ID + "/items",
			body:     []byte(`{"ingredient_id":"` + rice.ID + `","quantity_grams":150}`),
			token:    token,
			wantCode: http.StatusCreated,
		},
		{
			name:     "copy day",
			method:   http.MethodPost,
			path:     base + "/days/" + day.ID + "/copy",
			token:    token,
			wantCode: http.StatusCreated,
		},
		{
			name:     "ingredient in use",
			method:   http.MethodDelete,
			path:     "/v1/admin/ingredients/" + rice.ID,
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "ingredient is used by meal plans or recipes and cannot be deleted"}),
		},
	})

	rec = do(srv, http.MethodGet, base+"/macros", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pn nutrition.PlanNutrition
	unmarshallObj(t, rec, &pn)
	require.Len(t, pn.Days, 2)
	want := nutrition.Macros{Calories: 300, Protein: 15, Carbs: 30, Fat: 7.5, Fiber: 3}
	assert.Equal(t, want, pn.Days[0].Total)
	assert.Equal(t, want, pn.Days[1].Total)
	assert.Equal(t, nutrition.Macros{Calories: 600, Protein: 30, Carbs: 60, Fat: 15, Fiber: 6}, pn.Total)
	assert.Equal(t, want, pn.DailyAverage)
}

func TestTemplateAPI(t *testing.T) {
	srv, app := setup()
	owner := testutil.CreateUser(t, app.UserRepo, "Owner", "the_owner", "owner@forma.test", "", []string{user.RoleAdminOwner}, true)
	token := getToken(t, app, owner)

	rec := do(srv, http.MethodPost, "/v1/admin/email-templates/preview", token, []byte(`{"key":"welcome","vars":{"name":"<Ann>"}}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var r emailtmpl.Rendered
	unmarshallObj(t, rec, &r)
	assert.Equal(t, "Welcome to Forma!", r.Subject)
	assert.Contains(t, r.HTMLBody, "Hi &lt;Ann&gt;,")
	assert.Contains(t, r.TextBody, "Hi <Ann>,")

	rec = do(srv, http.MethodPost, "/v1/admin/email-templates", token, []byte(`{
		"key": "welcome",
		"name": "Welcome",
		"subject": "Hello {{ name }}",
		"text_body": "Welcome aboard"
	}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "duplicate key",
			method:   http.MethodPost,
			path:     "/v1/admin/email-templates",
			body:     []byte(`{"key":"WELCOME","name":"Again","subject":"x","html_body":"<p>x</p>"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"key":"a template with this key already exists"}`),
		},
		{
			name:     "empty preview",
			method:   http.MethodPost,
			path:     "/v1/admin/email-templates/preview",
			body:     []byte(`{}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"key":"provide a template key or a template"}`),
		},
	})

	rec = do(srv, http.MethodGet, "/v1/admin/email-templates/keys/welcome", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tmpl emailtmpl.Template
	unmarshallObj(t, rec, &tmpl)
	assert.Equal(t, "Hello {{ name }}", tmpl.Subject)
	assert.False(t, tmpl.IsDefault)
}
