package user

import (
	"context"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("user")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrUsernameExists   = errors.New("a user with this username already exists")
	ErrInvalidResetLink = errors.New("the password reset link is invalid or has expired")
)

// Email template keys
const (
	EmailWelcome       = "welcome"
	EmailPasswordReset = "password_reset"
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when taken by a user not in excludedUsers.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		// QueryFilter.Roles matches users having any role starting with one of the provided roles.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]User, int, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		SignUp(ctx context.Context, su SignUpUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]User, int, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		composer core.MailComposer
		tokenGen *tokenGenerator
		conf     *core.Config
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, composer core.MailComposer, conf *core.Config, logger core.Logger) Service {
	return &service{
		repo:     repo,
		mailSvc:  mailSvc,
		composer: composer,
		tokenGen: newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		conf:     conf,
		logger:   logger,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking username uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := core.NowFunc().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) SignUp(ctx context.Context, su SignUpUser) (User, error) {
	usr, err := svc.Create(ctx, NewUser{
		Name:     su.Name,
		Email:    su.Email,
		Password: su.Password,
		Roles:    []string{RoleMember},
	})
	if err != nil {
		return User{}, err
	}
	svc.sendMail(ctx, usr, EmailWelcome, map[string]string{"login_url": svc.conf.FrontendBaseURL + "/login"})
	return usr, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Page) ([]User, int, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering, page)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return err
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	link := svc.conf.FrontendBaseURL + "/password-reset/" + EncodeUID(usr) + "/" + svc.tokenGen.makeToken(usr)
	svc.sendMail(ctx, usr, EmailPasswordReset, map[string]string{
		"reset_url":      link,
		"valid_for_days": formatDays(svc.conf.PasswordResetTimeoutDelta),
	})
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	uid, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidResetLink)
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(ErrInvalidResetLink)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err := svc.tokenGen.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(ErrInvalidResetLink)
	}
	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	if _, err := svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return nil
}

// sendMail composes a templated email for usr and hands it to the mail service.
// Failures are logged, never returned: an email problem must not fail the request.
func (svc *service) sendMail(ctx context.Context, usr User, key string, vars map[string]string) {
	if usr.Email == "" {
		return
	}
	if vars == nil {
		vars = make(map[string]string)
	}
	vars["name"] = usr.DisplayName()
	vars["app_name"] = svc.conf.AppName

	msg, err := svc.composer.Compose(ctx, key, []mail.Address{{Name: usr.Name, Address: usr.Email}}, vars)
	if err != nil {
		svc.logger.Error("composing email", errors.Wrap(err, key), usr)
		return
	}
	svc.mailSvc.SendMessages(msg)
}

func formatDays(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	if days == 1 {
		return "1 day"
	}
	return strconv.Itoa(days) + " days"
}
