package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/content"
)

type contentRepository struct {
	db *DB
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *DB) content.Repository {
	return &contentRepository{db: db}
}

// Courses

func (repo *contentRepository) CreateCourse(ctx context.Context, c content.Course) (content.Course, error) {
	defer repo.db.lock(ctx)()

	c.ID = newID()
	c.Lessons = nil
	repo.db.tbl(tblCourses).put(c.ID, c)
	return c, nil
}

func (repo *contentRepository) QueryCourses(
	ctx context.Context,
	filter content.CourseFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]content.Course, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cs := make([]content.Course, 0)
	repo.db.tbl(tblCourses).each(func(v interface{}) {
		c := v.(content.Course)
		if filter.Search != "" && !containsFold(c.Title, filter.Search) && !containsFold(c.Description, filter.Search) {
			return
		}
		if filter.Published != nil && c.Published != *filter.Published {
			return
		}
		if filter.MembershipID != "" && (c.MembershipID == nil || *c.MembershipID != filter.MembershipID) {
			return
		}
		cs = append(cs, c)
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "title", Ascending: true}}
	}
	orderRows(cs, core.AllowedOrdering(ordering, content.CourseOrderingFields), func(i int, field string) interface{} {
		switch field {
		case "title":
			return cs[i].Title
		case "published":
			return cs[i].Published
		default:
			return cs[i].CreatedAt
		}
	})

	start, end := page.Window(len(cs))
	return cs[start:end], len(cs), nil
}

func (repo *contentRepository) GetCourse(ctx context.Context, id string) (content.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	v, ok := repo.db.tbl(tblCourses).get(id)
	if !ok {
		return content.Course{}, content.ErrCourseNotFound
	}
	c := v.(content.Course)
	c.Lessons = make([]content.Lesson, 0)
	repo.db.tbl(tblLessons).each(func(v interface{}) {
		if l := v.(content.Lesson); l.CourseID == id {
			c.Lessons = append(c.Lessons, l)
		}
	})
	return c, nil
}

func (repo *contentRepository) UpdateCourse(ctx context.Context, c content.Course) (content.Course, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblCourses).get(c.ID); !ok {
		return content.Course{}, content.ErrCourseNotFound
	}
	c.Lessons = nil
	repo.db.tbl(tblCourses).put(c.ID, c)
	return c, nil
}

func (repo *contentRepository) DeleteCourse(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblCourses).del(id) {
		return content.ErrCourseNotFound
	}
	deleteWhere(repo.db.tbl(tblLessons), func(v interface{}) bool { return v.(content.Lesson).CourseID == id })
	return nil
}

// Lessons

func (repo *contentRepository) CreateLesson(ctx context.Context, l content.Lesson) (content.Lesson, error) {
	defer repo.db.lock(ctx)()

	l.ID = newID()
	repo.db.tbl(tblLessons).put(l.ID, l)
	return l, nil
}

func (repo *contentRepository) GetLesson(ctx context.Context, id string) (content.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblLessons).get(id); ok {
		return v.(content.Lesson), nil
	}
	return content.Lesson{}, content.ErrLessonNotFound
}

func (repo *contentRepository) UpdateLesson(ctx context.Context, l content.Lesson) (content.Lesson, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblLessons).get(l.ID); !ok {
		return content.Lesson{}, content.ErrLessonNotFound
	}
	repo.db.tbl(tblLessons).put(l.ID, l)
	return l, nil
}

func (repo *contentRepository) DeleteLesson(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblLessons).del(id) {
		return content.ErrLessonNotFound
	}
	return nil
}

// FAQs

func (repo *contentRepository) CreateFAQ(ctx context.Context, f content.FAQ) (content.FAQ, error) {
	defer repo.db.lock(ctx)()

	f.ID = newID()
	repo.db.tbl(tblFAQs).put(f.ID, f)
	return f, nil
}

func (repo *contentRepository) QueryFAQs(
	ctx context.Context,
	filter content.FAQFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]content.FAQ, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	fs := make([]content.FAQ, 0)
	repo.db.tbl(tblFAQs).each(func(v interface{}) {
		f := v.(content.FAQ)
		if filter.Search != "" && !containsFold(f.Question, filter.Search) && !containsFold(f.Answer, filter.Search) {
			return
		}
		if filter.Category != "" && !strings.EqualFold(f.Category, filter.Category) {
			return
		}
		if filter.Published != nil && f.Published != *filter.Published {
			return
		}
		fs = append(fs, f)
	})

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "category", Ascending: true}, {Field: "position", Ascending: true}}
	}
	orderRows(fs, core.AllowedOrdering(ordering, content.FAQOrderingFields), func(i int, field string) interface{} {
		switch field {
		case "position":
			return fs[i].Position
		case "category":
			return fs[i].Category
		case "question":
			return fs[i].Question
		default:
			return fs[i].CreatedAt
		}
	})

	start, end := page.Window(len(fs))
	return fs[start:end], len(fs), nil
}

func (repo *contentRepository) GetFAQ(ctx context.Context, id string) (content.FAQ, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.tbl(tblFAQs).get(id); ok {
		return v.(content.FAQ), nil
	}
	return content.FAQ{}, content.ErrFAQNotFound
}

func (repo *contentRepository) UpdateFAQ(ctx context.Context, f content.FAQ) (content.FAQ, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.tbl(tblFAQs).get(f.ID); !ok {
		return content.FAQ{}, content.ErrFAQNotFound
	}
	repo.db.tbl(tblFAQs).put(f.ID, f)
	return f, nil
}

func (repo *contentRepository) DeleteFAQ(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if !repo.db.tbl(tblFAQs).del(id) {
		return content.ErrFAQNotFound
	}
	return nil
}
