package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/content"
)

const (
	courseColumns = "id, title, description, membership_id, published, created_at, updated_at"
	lessonColumns = "id, course_id, title, description, video_id, duration_seconds, position"
	faqColumns    = "id, question, answer, category, position, published, created_at, updated_at"
)

type contentRepository struct {
	repository
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *sqlx.DB) content.Repository {
	return &contentRepository{repository{db: db}}
}

// Courses

func (repo *contentRepository) CreateCourse(ctx context.Context, c content.Course) (content.Course, error) {
	c.ID = newID()
	c.Lessons = nil
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES (:id, :title, :description, :membership_id, :published, :created_at, :updated_at)`,
		c,
	)
	if err != nil {
		return content.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *contentRepository) QueryCourses(
	ctx context.Context,
	filter content.CourseFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]content.Course, int, error) {
	var w conds
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(title ILIKE ? OR description ILIKE ?)", p, p)
	}
	if filter.Published != nil {
		w.add("published = ?", *filter.Published)
	}
	if filter.MembershipID != "" {
		w.add("membership_id = ?", filter.MembershipID)
	}

	cs := make([]content.Course, 0)
	order := orderBy(ordering, content.CourseOrderingFields, "title ASC")
	total, err := queryPage(ctx, repo.ext(ctx), &cs, courseColumns, "courses", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying courses")
	}
	return cs, total, nil
}

func (repo *contentRepository) GetCourse(ctx context.Context, id string) (content.Course, error) {
	e := repo.ext(ctx)
	var c content.Course
	if err := get(ctx, e, &c, content.ErrCourseNotFound, "SELECT "+courseColumns+" FROM courses WHERE id = ?", id); err != nil {
		return content.Course{}, err
	}
	c.Lessons = make([]content.Lesson, 0)
	q := "SELECT " + lessonColumns + " FROM lessons WHERE course_id = ? ORDER BY position, id"
	if err := sqlx.SelectContext(ctx, e, &c.Lessons, e.Rebind(q), id); err != nil {
		return content.Course{}, errors.Wrap(err, "selecting lessons")
	}
	return c, nil
}

func (repo *contentRepository) UpdateCourse(ctx context.Context, c content.Course) (content.Course, error) {
	err := namedExec(ctx, repo.ext(ctx), content.ErrCourseNotFound, `
		UPDATE courses SET
			title = :title, description = :description, membership_id = :membership_id,
			published = :published, updated_at = :updated_at
		WHERE id = :id`,
		c,
	)
	if err != nil {
		return content.Course{}, err
	}
	c.Lessons = nil
	return c, nil
}

func (repo *contentRepository) DeleteCourse(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), content.ErrCourseNotFound, "DELETE FROM courses WHERE id = ?", id)
}

// Lessons

func (repo *contentRepository) CreateLesson(ctx context.Context, l content.Lesson) (content.Lesson, error) {
	l.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO lessons (`+lessonColumns+`)
		VALUES (:id, :course_id, :title, :description, :video_id, :duration_seconds, :position)`,
		l,
	)
	if err != nil {
		return content.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo *contentRepository) GetLesson(ctx context.Context, id string) (content.Lesson, error) {
	var l content.Lesson
	err := get(ctx, repo.ext(ctx), &l, content.ErrLessonNotFound, "SELECT "+lessonColumns+" FROM lessons WHERE id = ?", id)
	return l, err
}

func (repo *contentRepository) UpdateLesson(ctx context.Context, l content.Lesson) (content.Lesson, error) {
	err := namedExec(ctx, repo.ext(ctx), content.ErrLessonNotFound, `
		UPDATE lessons SET
			title = :title, description = :description, video_id = :video_id,
			duration_seconds = :duration_seconds, position = :position
		WHERE id = :id`,
		l,
	)
	if err != nil {
		return content.Lesson{}, err
	}
	return l, nil
}

func (repo *contentRepository) DeleteLesson(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), content.ErrLessonNotFound, "DELETE FROM lessons WHERE id = ?", id)
}

// FAQs

func (repo *contentRepository) CreateFAQ(ctx context.Context, f content.FAQ) (content.FAQ, error) {
	f.ID = newID()
	err := namedExec(ctx, repo.ext(ctx), nil, `
		INSERT INTO faqs (`+faqColumns+`)
		VALUES (:id, :question, :answer, :category, :position, :published, :created_at, :updated_at)`,
		f,
	)
	if err != nil {
		return content.FAQ{}, errors.Wrap(err, "inserting faq")
	}
	return f, nil
}

func (repo *contentRepository) QueryFAQs(
	ctx context.Context,
	filter content.FAQFilter,
	ordering []core.DBOrdering,
	page core.Page,
) ([]content.FAQ, int, error) {
	var w conds
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(question ILIKE ? OR answer ILIKE ?)", p, p)
	}
	if filter.Category != "" {
		w.add("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.Published != nil {
		w.add("published = ?", *filter.Published)
	}

	fs := make([]content.FAQ, 0)
	order := orderBy(ordering, content.FAQOrderingFields, "category ASC, position ASC")
	total, err := queryPage(ctx, repo.ext(ctx), &fs, faqColumns, "faqs", w, order, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying faqs")
	}
	return fs, total, nil
}

func (repo *contentRepository) GetFAQ(ctx context.Context, id string) (content.FAQ, error) {
	var f content.FAQ
	err := get(ctx, repo.ext(ctx), &f, content.ErrFAQNotFound, "SELECT "+faqColumns+" FROM faqs WHERE id = ?", id)
	return f, err
}

func (repo *contentRepository) UpdateFAQ(ctx context.Context, f content.FAQ) (content.FAQ, error) {
	err := namedExec(ctx, repo.ext(ctx), content.ErrFAQNotFound, `
		UPDATE faqs SET
			question = :question, answer = :answer, category = :category,
			position = :position, published = :published, updated_at = :updated_at
		WHERE id = :id`,
		f,
	)
	if err != nil {
		return content.FAQ{}, err
	}
	return f, nil
}

func (repo *contentRepository) DeleteFAQ(ctx context.Context, id string) error {
	return exec(ctx, repo.ext(ctx), content.ErrFAQNotFound, "DELETE FROM faqs WHERE id = ?", id)
}
