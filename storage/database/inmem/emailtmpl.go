package inmemdb

import (
	"context"

	"github.com/trezcool/forma/core/emailtmpl"
)

type emailTemplateRepository struct {
	db *DB
}

var _ emailtmpl.Repository = (*emailTemplateRepository)(nil)

func NewEmailTemplateRepository(db *DB) emailtmpl.Repository {
	return &emailTemplateRepository{db: db}
}

func (repo *emailTemplateRepository) CreateTemplate(ctx context.Context, t emailtmpl.Template) (emailtmpl.Template, error) {
	defer repo.db.lock(ctx)()

	t.ID = newID()
	t.IsDefault = false
	repo.db.tbl(tblTemplates).put(t.ID, t)
	return t, nil
}

func (repo *emailTemplateRepository) ListTemplates(ctx context.Context) ([]emailtmpl.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tmpls := make([]emailtmpl.Template, 0)
	repo.db.tbl(tblTemplates).each(func(v interface{}) {
		tmpls = append(tmpls, v.(emailtmpl.Template))
	})
	return tmpls, nil
}

func (repo *emailTemplateRepository) GetTemplateByKey(ctx context.Context, key string) (emailtmpl.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var (
		found emailtmpl.Template
		ok    bool
	)
	repo.db.tbl(tblTemplates).each(func(v interface{}) {
		if t := v.(emailtmpl.Template); !ok && t.Key == key {
			found, ok = t, true
		}
	})
	if !ok {
		return emailtmpl.Template{}, emailtmpl.ErrNotFound
	}
	return found, nil
}

func (repo *emailTemplateRepository) GetTemplate(ctx context.Context, id string) (emailtmpl.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblTemplates).get(id); ok {
		return v.(emailtmpl.Template), nil
	}
	return emailtmpl.Template{}, emailtmpl.ErrNotFound
}

func (repo *emailTemplateRepository) UpdateTemplate(ctx context.Context, t emailtmpl.Template) (emailtmpl.Template, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblTemplates).get(t.ID); !ok {
		return emailtmpl.Template{}, emailtmpl.ErrNotFound
	}
	repo.db.tbl(tblTemplates).put(t.ID, t)
	return t, nil
}

func (repo *emailTemplateRepository) DeleteTemplate(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblTemplates).del(id) {
		return emailtmpl.ErrNotFound
	}
	return nil
}
