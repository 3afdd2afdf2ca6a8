package user_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/user"
	"github.com/trezcool/forma/tests"
)

func TestService_SignUp(t *testing.T) {
	app := testutil.NewApp()
	ctx := context.Background()

	su := user.SignUpUser{Name: " Jane ", Email: " Jane@Test.CD ", Password: "pwd", PasswordConfirm: "pwd"}
	require.NoError(t, su.Validate(ctx, app.UserSvc))

	usr, err := app.UserSvc.SignUp(ctx, su)
	require.NoError(t, err)
	assert.Equal(t, "Jane", usr.Name)
	assert.Equal(t, "jane@test.cd", usr.Email)
	assert.Equal(t, []string{user.RoleMember}, usr.Roles)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsMember())
	assert.False(t, usr.IsAdmin())
	assert.NoError(t, usr.CheckPassword("pwd"))

	sent := app.Mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, user.EmailWelcome, sent[0].TemplateKey)
	assert.Equal(t, "jane@test.cd", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "https://forma.test/login")

	// the email is now taken
	dup := user.SignUpUser{Name: "Other", Email: "JANE@test.cd", Password: "x", PasswordConfirm: "x"}
	err = dup.Validate(ctx, app.UserSvc)
	assert.Equal(t, []string{"email"}, testutil.ErrorFields(err))
}

func TestNewUser_Validate(t *testing.T) {
	app := testutil.NewApp()
	ctx := context.Background()
	testutil.CreateUser(t, app.UserRepo, "Taken", "taken", "taken@test.cd", "", nil, true)

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField string
	}{
		{name: "valid", nu: user.NewUser{Name: "A", Username: "valid_user", Password: "p", PasswordConfirm: "p"}},
		{name: "name required", nu: user.NewUser{Password: "p", PasswordConfirm: "p"}, wantField: "name"},
		{name: "short username", nu: user.NewUser{Name: "A", Username: "abc", Password: "p", PasswordConfirm: "p"}, wantField: "username"},
		{name: "bad email", nu: user.NewUser{Name: "A", Email: "nope", Password: "p", PasswordConfirm: "p"}, wantField: "email"},
		{name: "password mismatch", nu: user.NewUser{Name: "A", Password: "p", PasswordConfirm: "q"}, wantField: "password_confirm"},
		{name: "unknown role", nu: user.NewUser{Name: "A", Password: "p", PasswordConfirm: "p", Roles: []string{"root"}}, wantField: "roles"},
		{name: "username taken", nu: user.NewUser{Name: "A", Username: "TAKEN", Password: "p", PasswordConfirm: "p"}, wantField: "username"},
		{name: "email taken", nu: user.NewUser{Name: "A", Email: "taken@test.cd", Password: "p", PasswordConfirm: "p"}, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(ctx, app.UserSvc)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, testutil.ErrorFields(err), tt.wantField, "err = %v", err)
		})
	}
}

func TestService_Update(t *testing.T) {
	app := testutil.NewApp()
	ctx := context.Background()
	usr := testutil.CreateUser(t, app.UserRepo, "Old", "old_name", "old@test.cd", "pwd", []string{user.RoleMember}, true)
	testutil.CreateUser(t, app.UserRepo, "Other", "other", "other@test.cd", "", nil, true)

	// keeping its own username & email is fine
	uu := user.UpdateUser{Name: "New"}
	require.NoError(t, uu.Validate(ctx, usr, app.UserSvc))
	assert.Equal(t, "old_name", uu.Username)
	assert.Equal(t, "old@test.cd", uu.Email)

	uu.IsActive = core.BoolPtr(false)
	uu.Password = "new-pwd"
	uu.PasswordConfirm = "new-pwd"
	updated, err := app.UserSvc.Update(ctx, usr, uu)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{user.RoleMember}, updated.Roles)
	assert.NoError(t, updated.CheckPassword("new-pwd"))

	got, err := app.UserSvc.GetByUsernameOrEmail(ctx, " OLD@test.cd ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.Equal(t, "New", got.Name)

	// someone else's email is not
	uu = user.UpdateUser{Email: "other@test.cd"}
	assert.Error(t, uu.Validate(ctx, usr, app.UserSvc))
}

func TestService_Delete(t *testing.T) {
	app := testutil.NewApp()
	ctx := context.Background()
	usr1 := testutil.CreateUser(t, app.UserRepo, "One", "", "one@test.cd", "", nil, true)
	usr2 := testutil.CreateUser(t, app.UserRepo, "Two", "", "two@test.cd", "", nil, true)

	require.NoError(t, app.UserSvc.Delete(ctx, usr1.ID, "unknown"))

	_, err := app.UserSvc.GetByID(ctx, usr1.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = app.UserSvc.GetByID(ctx, usr2.ID)
	assert.NoError(t, err)
}

var resetLinkRe = regexp.MustCompile(`https://forma\.test/password-reset/([^/\s]+)/(\S+)`)

func TestService_PasswordReset(t *testing.T) {
	app := testutil.NewApp()
	ctx := context.Background()
	usr := testutil.CreateUser(t, app.UserRepo, "Reset", "", "reset@test.cd", "old-pwd", nil, true)
	inactive := testutil.CreateUser(t, app.UserRepo, "Gone", "", "gone@test.cd", "", nil, false)

	err := app.UserSvc.RequestPasswordReset(ctx, "unknown@test.cd")
	assert.True(t, core.IsNotFound(err))
	err = app.UserSvc.RequestPasswordReset(ctx, inactive.Email)
	assert.True(t, core.IsNotFound(err))
	assert.Empty(t, app.Mail.Sent())

	require.NoError(t, app.UserSvc.RequestPasswordReset(ctx, " RESET@test.cd"))
	sent := app.Mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, user.EmailPasswordReset, sent[0].TemplateKey)
	assert.Contains(t, sent[0].TextContent, "3 days")

	m := resetLinkRe.FindStringSubmatch(sent[0].TextContent)
	require.Len(t, m, 3, "reset link not found in %q", sent[0].TextContent)
	uid, token := m[1], m[2]

	tests := []struct {
		name    string
		data    user.ResetUserPassword
		wantErr bool
	}{
		{name: "bad uid", data: user.ResetUserPassword{UID: "!!", Token: token, Password: "n", PasswordConfirm: "n"}, wantErr: true},
		{name: "bad token", data: user.ResetUserPassword{UID: uid, Token: "abc-def", Password: "n", PasswordConfirm: "n"}, wantErr: true},
		{name: "ok", data: user.ResetUserPassword{UID: uid, Token: token, Password: "new-pwd", PasswordConfirm: "new-pwd"}},
		{name: "token already used", data: user.ResetUserPassword{UID: uid, Token: token, Password: "x", PasswordConfirm: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := app.UserSvc.ResetPassword(ctx, tt.data)
			if tt.wantErr {
				var verr *core.ValidationError
				assert.True(t, errors.As(err, &verr), "err = %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}

	got, err := app.UserSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("new-pwd"))
}
