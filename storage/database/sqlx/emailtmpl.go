package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core/emailtmpl"
)

const templateColumns = "id, key, name, subject, html_body, text_body, updated_at"

type emailTemplateRepository struct {
	repository
}

var _ emailtmpl.Repository = (*emailTemplateRepository)(nil)

func NewEmailTemplateRepository(db *sqlx.DB) emailtmpl.Repository {
	return &emailTemplateRepository{repository{db: db}}
}

func (repo *emailTemplateRepository) CreateTemplate(ctx context.Context, t emailtmpl.Template) (emailtmpl.Template, error) {
	t.ID = newID()
	t.IsDefault = false
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO email_templates (`+templateColumns+`)
		VALUES (:id, :key, :name, :subject, :html_body, :text_body, :updated_at)`,
		t,
	)
	if err != nil {
		return emailtmpl.Template{}, errors.Wrap(err, "inserting email template")
	}
	return t, nil
}

func (repo *emailTemplateRepository) ListTemplates(ctx context.Context) ([]emailtmpl.Template, error) {
	e := repo.ext(ctx)
	tmpls := make([]emailtmpl.Template, 0)
	if err := sqlx.SelectContext(ctx, e, &tmpls, "SELECT "+templateColumns+" FROM email_templates ORDER BY key"); err != nil {
		return nil, errors.Wrap(err, "selecting email templates")
	}
	return tmpls, nil
}

func (repo *emailTemplateRepository) GetTemplateByKey(ctx context.Context, key string) (emailtmpl.Template, error) {
	var t emailtmpl.Template
	err := get(ctx, repo.ext(ctx), &t, emailtmpl.ErrNotFound, "SELECT "+templateColumns+" FROM email_templates WHERE key = ?", key)
	return t, err
}

func (repo *emailTemplateRepository) GetTemplate(ctx context.Context, id string) (emailtmpl.Template, error) {
	var t emailtmpl.Template
	err := get(ctx, repo.ext(ctx), &t, emailtmpl.ErrNotFound, "SELECT "+templateColumns+" FROM email_templates WHERE id = ?", id)
	return t, err
}

func (repo *emailTemplateRepository) UpdateTemplate(ctx context.Context, t emailtmpl.Template) (emailtmpl.Template, error) {
	err := namedExec(ctx, repo.ext(ctx), emailtmpl.ErrNotFound, `
		UPDATE email_templates SET
			key = :key, name = :name, subject = :subject,
			html_body = :html_body, text_body = :text_body, updated_at = :updated_at
		WHERE id = :id`,
		t,
	)
	if err != nil {
		return emailtmpl.Template{}, err
	}
	return t, nil
}

func (repo *emailTemplateRepository) DeleteTemplate(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), emailtmpl.ErrNotFound, "DELETE FROM email_templates WHERE id = ?", id)
}
