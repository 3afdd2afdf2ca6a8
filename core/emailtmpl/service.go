package emailtmpl

import (
	"context"
	"net/mail"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
)

var (
	// errors
	ErrNotFound  = core.NewNotFoundError("email template")
	ErrKeyExists = errors.New("a template with this key already exists")
)

type (
	Repository interface {
		CreateTemplate(ctx context.Context, t Template) (Template, error)
		ListTemplates(ctx context.Context) ([]Template, error)
		GetTemplateByKey(ctx context.Context, key string) (Template, error)
		GetTemplate(ctx context.Context, id string) (Template, error)
		UpdateTemplate(ctx context.Context, t Template) (Template, error)
		DeleteTemplate(ctx context.Context, id string) error
	}

	Service interface {
		core.MailComposer

		// Query lists stored templates plus the built-in ones they do not override.
		Query(ctx context.Context, search string, ordering []core.DBOrdering, page core.Page) ([]Template, int, error)
		Get(ctx context.Context, id string) (Template, error)
		// Resolve returns the stored template for key, falling back to the built-in one.
		Resolve(ctx context.Context, key string) (Template, error)
		Create(ctx context.Context, nt NewTemplate) (Template, error)
		Update(ctx context.Context, t Template, nt NewTemplate) (Template, error)
		// Delete removes a stored template; a built-in template of the same key applies again.
		Delete(ctx context.Context, id string) error
		Preview(ctx context.Context, pr PreviewRequest) (Rendered, error)
	}

	service struct {
		repo Repository
		conf *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, conf *core.Config) Service {
	return &service{repo: repo, conf: conf}
}

func (svc *service) Query(ctx context.Context, search string, ordering []core.DBOrdering, page core.Page) ([]Template, int, error) {
	stored, err := svc.repo.ListTemplates(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing templates")
	}
	overridden := make(map[string]bool, len(stored))
	all := make([]Template, 0, len(stored)+len(defaults))
	for _, t := range stored {
		overridden[t.Key] = true
		all = append(all, t)
	}
	for _, key := range DefaultKeys() {
		if !overridden[key] {
			t, _ := Default(key)
			all = append(all, t)
		}
	}

	search = core.CleanString(search, true /* lower */)
	if search != "" {
		filtered := all[:0]
		for _, t := range all {
			if containsFold(t.Key, search) || containsFold(t.Name, search) || containsFold(t.Subject, search) {
				filtered = append(filtered, t)
			}
		}
		all = filtered
	}

	sortTemplates(all, core.AllowedOrdering(ordering, OrderingFields))
	start, end := page.Window(len(all))
	return all[start:end], len(all), nil
}

func sortTemplates(tmpls []Template, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "key", Ascending: true}}
	}
	sort.SliceStable(tmpls, func(i, j int) bool {
		for _, ord := range ordering {
			var c int
			switch ord.Field {
			case "key":
				c = compareStrings(tmpls[i].Key, tmpls[j].Key)
			case "name":
				c = compareStrings(tmpls[i].Name, tmpls[j].Name)
			case "updated_at":
				c = compareInt64(tmpls[i].UpdatedAt.UnixNano(), tmpls[j].UpdatedAt.UnixNano())
			}
			if c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return false
	})
}

func (svc *service) Get(ctx context.Context, id string) (Template, error) {
	return svc.repo.GetTemplate(ctx, id)
}

func (svc *service) Resolve(ctx context.Context, key string) (Template, error) {
	t, err := svc.repo.GetTemplateByKey(ctx, key)
	if err == nil {
		return t, nil
	}
	if !core.IsNotFound(err) {
		return Template{}, errors.Wrap(err, "finding template by key")
	}
	if t, ok := Default(key); ok {
		return t, nil
	}
	return Template{}, ErrNotFound
}

func (svc *service) Create(ctx context.Context, nt NewTemplate) (Template, error) {
	if _, err := svc.repo.GetTemplateByKey(ctx, nt.Key); err == nil {
		return Template{}, core.NewValidationError(ErrKeyExists, core.FieldError{Field: "key", Error: ErrKeyExists.Error()})
	} else if !core.IsNotFound(err) {
		return Template{}, errors.Wrap(err, "finding template by key")
	}
	t := Template{
		Key:       nt.Key,
		Name:      nt.Name,
		Subject:   nt.Subject,
		HTMLBody:  nt.HTMLBody,
		TextBody:  nt.TextBody,
		UpdatedAt: core.NowFunc().UTC(),
	}
	return svc.repo.CreateTemplate(ctx, t)
}

func (svc *service) Update(ctx context.Context, t Template, nt NewTemplate) (Template, error) {
	if nt.Key != t.Key {
		if _, err := svc.repo.GetTemplateByKey(ctx, nt.Key); err == nil {
			return Template{}, core.NewValidationError(ErrKeyExists, core.FieldError{Field: "key", Error: ErrKeyExists.Error()})
		} else if !core.IsNotFound(err) {
			return Template{}, errors.Wrap(err, "finding template by key")
		}
	}
	t.Key = nt.Key
	t.Name = nt.Name
	t.Subject = nt.Subject
	t.HTMLBody = nt.HTMLBody
	t.TextBody = nt.TextBody
	t.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateTemplate(ctx, t)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteTemplate(ctx, id)
}

func (svc *service) Preview(ctx context.Context, pr PreviewRequest) (Rendered, error) {
	t := Template{Subject: pr.Subject, HTMLBody: pr.HTMLBody, TextBody: pr.TextBody}
	if pr.Key != "" {
		var err error
		if t, err = svc.Resolve(ctx, pr.Key); err != nil {
			return Rendered{}, err
		}
	}
	return Render(t, svc.withGlobals(pr.Vars)), nil
}

func (svc *service) Compose(ctx context.Context, key string, to []mail.Address, vars map[string]string) (*core.EmailMessage, error) {
	t, err := svc.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	r := Render(t, svc.withGlobals(vars))
	return &core.EmailMessage{
		To:          to,
		Subject:     r.Subject,
		TextContent: r.TextBody,
		HTMLContent: r.HTMLBody,
		TemplateKey: key,
	}, nil
}

// withGlobals adds the variables every template may use, without overriding the caller's.
func (svc *service) withGlobals(vars map[string]string) map[string]string {
	out := map[string]string{
		"app_name":     svc.conf.AppName,
		"frontend_url": svc.conf.FrontendBaseURL,
	}
	for k, v := range vars {
		out[k] = v
	}
	return out
}
