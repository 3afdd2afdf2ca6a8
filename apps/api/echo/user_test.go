package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/user"
	"github.com/trezcool/forma/tests"
)

const strongPwd = "Kx9#mplqz!"

func TestUserAPI_Login(t *testing.T) {
	srv, app := setup()
	testutil.CreateUser(t, app.UserRepo, "Active", "active_user", "active@forma.test", strongPwd, []string{user.RoleMember}, true)
	testutil.CreateUser(t, app.UserRepo, "Gone", "gone_user", "gone@forma.test", strongPwd, []string{user.RoleMember}, false)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"username":"active_user","password":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"username":"ghost","password":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/v1/users/login",
			body:     []byte(`{"username":"gone@forma.test","password":"` + strongPwd + `"}`),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("success by email", func(t *testing.T) {
		rec := do(srv, http.MethodPost, "/v1/users/login", "", []byte(`{"username":" ACTIVE@forma.test ","password":"`+strongPwd+`"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshallObj(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)

		// the token opens the member area
		rec = do(srv, http.MethodGet, "/v1/me", resp.Token)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestUserAPI_SignUp(t *testing.T) {
	srv, app := setup()

	rec := do(srv, http.MethodPost, "/v1/users/signup", "", []byte(`{
		"name": "Jane Doe",
		"email": "Jane@Forma.test",
		"password": "`+strongPwd+`",
		"password_confirm": "`+strongPwd+`"
	}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SignUpResponse
	unmarshallObj(t, rec, &resp)
	assert.Equal(t, "jane@forma.test", resp.User.Email)
	assert.Equal(t, []string{user.RoleMember}, resp.User.Roles)
	assert.NotEmpty(t, resp.Token)

	sent := app.Mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, user.EmailWelcome, sent[0].TemplateKey)

	// same email again
	rec = do(srv, http.MethodPost, "/v1/users/signup", "", []byte(`{
		"name": "Jane Again",
		"email": "jane@forma.test",
		"password": "`+strongPwd+`",
		"password_confirm": "`+strongPwd+`"
	}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"email":"a user with this email already exists"}`, rec.Body.String())
}

func TestUserAPI_Permissions(t *testing.T) {
	srv, app := setup()
	owner := testutil.CreateUser(t, app.UserRepo, "Owner", "the_owner", "owner@forma.test", "", []string{user.RoleAdminOwner}, true)
	coach := testutil.CreateUser(t, app.UserRepo, "Coach", "the_coach", "coach@forma.test", "", []string{user.RoleAdminCoach}, true)
	member := testutil.CreateUser(t, app.UserRepo, "Member", "a_member", "member@forma.test", "", []string{user.RoleMember}, true)

	ownerToken := getToken(t, app, owner)
	coachToken := getToken(t, app, coach)
	memberToken := getToken(t, app, member)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "list without token",
			method:   http.MethodGet,
			path:     "/v1/users",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "list as member",
			method:   http.MethodGet,
			path:     "/v1/users",
			token:    memberToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "member reads themselves",
			method:   http.MethodGet,
			path:     "/v1/users/" + member.ID,
			token:    memberToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "member cannot read others",
			method:   http.MethodGet,
			path:     "/v1/users/" + coach.ID,
			token:    memberToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "member cannot change their roles",
			method:   http.MethodPut,
			path:     "/v1/users/" + member.ID,
			body:     []byte(`{"roles":["admin:owner"]}`),
			token:    memberToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "coach cannot create users",
			method:   http.MethodPost,
			path:     "/v1/users",
			body:     []byte(`{}`),
			token:    coachToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "coach cannot update owner",
			method:   http.MethodPut,
			path:     "/v1/users/" + owner.ID,
			body:     []byte(`{"is_active":false,"password":"Zq8$rtvnm!","password_confirm":"Zq8$rtvnm!"}`),
			token:    coachToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "coach updates member",
			method:   http.MethodPut,
			path:     "/v1/users/" + member.ID,
			body:     []byte(`{"name":"Renamed"}`),
			token:    coachToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "owner cannot delete themselves",
			method:   http.MethodDelete,
			path:     "/v1/users/" + owner.ID,
			token:    ownerToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "owner deletes member",
			method:   http.MethodDelete,
			path:     "/v1/users/" + member.ID,
			token:    ownerToken,
			wantCode: http.StatusNoContent,
		},
	})

	usr, err := app.UserSvc.GetByID(testContext(), owner.ID)
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	assert.Equal(t, owner.PasswordHash, usr.PasswordHash)
}

func TestUserAPI_DestroyMultiple(t *testing.T) {
	srv, app := setup()
	owner := testutil.CreateUser(t, app.UserRepo, "Owner", "the_owner", "owner@forma.test", "", []string{user.RoleAdminOwner}, true)
	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "the_admin", "admin@forma.test", "", []string{user.RoleAdmin}, true)
	member := testutil.CreateUser(t, app.UserRepo, "Member", "a_member", "member@forma.test", "", []string{user.RoleMember}, true)

	adminToken := getToken(t, app, admin)

	runHTTPTests(t, srv, []httpTest{
		{
			name:     "admin cannot bulk delete themselves",
			method:   http.MethodDelete,
			path:     "/v1/users?id=" + admin.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "admin cannot bulk delete owner",
			method:   http.MethodDelete,
			path:     "/v1/users?id=" + member.ID + "&id=" + owner.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "unknown ids are skipped",
			method:   http.MethodDelete,
			path:     "/v1/users?id=" + member.ID + "&id=nope",
			token:    adminToken,
			wantCode: http.StatusNoContent,
		},
	})

	_, err := app.UserSvc.GetByID(testContext(), owner.ID)
	assert.NoError(t, err)
	_, err = app.UserSvc.GetByID(testContext(), member.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestUserAPI_Query(t *testing.T) {
	srv, app := setup()
	admin := testutil.CreateUser(t, app.UserRepo, "Admin", "the_admin", "admin@forma.test", "", []string{user.RoleAdmin}, true)
	for _, name := range []string{"alpha", "bravo", "charlie"} {
		testutil.CreateUser(t, app.UserRepo, name, name+"_m", name+"@forma.test", "", []string{user.RoleMember}, true)
	}
	token := getToken(t, app, admin)

	rec := do(srv, http.MethodGet, "/v1/users?role=member:&ordering=-name&page=1&page_size=2", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Count   int         `json:"count"`
		Results []user.User `json:"results"`
	}
	unmarshallObj(t, rec, &resp)
	assert.Equal(t, 3, resp.Count)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "charlie", resp.Results[0].Name)
	assert.Equal(t, "bravo", resp.Results[1].Name)

	rec = do(srv, http.MethodGet, "/v1/users?page=zero", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"page":"must be a positive integer"}`, rec.Body.String())
}

func TestUserAPI_PasswordReset(t *testing.T) {
	srv, app := setup()
	testutil.CreateUser(t, app.UserRepo, "Reset", "reset_me", "reset@forma.test", strongPwd, []string{user.RoleMember}, true)

	for _, email := range []string{"reset@forma.test", "unknown@forma.test"} {
		rec := do(srv, http.MethodPost, "/v1/users/password-reset", "", []byte(`{"email":"`+email+`"}`))
		assert.Equal(t, http.StatusOK, rec.Code, email)
	}
	// only the known address gets an email
	sent := app.Mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, user.EmailPasswordReset, sent[0].TemplateKey)

	rec := do(srv, http.MethodPost, "/v1/users/password-reset-confirm", "", []byte(`{
		"uid": "bogus",
		"token": "bogus",
		"password": "`+strongPwd+`x",
		"password_confirm": "`+strongPwd+`x"
	}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"the password reset link is invalid or has expired"}`, rec.Body.String())
}

func TestUserAPI_RefreshToken(t *testing.T) {
	srv, app := setup()
	usr := testutil.CreateUser(t, app.UserRepo, "Refresh", "refresh_me", "refresh@forma.test", "", []string{user.RoleMember}, true)
	token := getToken(t, app, usr)

	rec := do(srv, http.MethodPost, "/v1/users/token-refresh", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// deactivated in the meantime
	usr.IsActive = false
	_, err := app.UserRepo.UpdateUser(testContext(), usr)
	require.NoError(t, err)

	rec = do(srv, http.MethodPost, "/v1/users/token-refresh", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"account deactivated"}`, rec.Body.String())
}
