package content

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/forma/core"
)

var (
	// errors
	ErrCourseNotFound = core.NewNotFoundError("course")
	ErrLessonNotFound = core.NewNotFoundError("lesson")
	ErrFAQNotFound    = core.NewNotFoundError("faq")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering, page core.Page) ([]Course, int, error)
		// GetCourse returns the course with its lessons.
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error

		CreateFAQ(ctx context.Context, f FAQ) (FAQ, error)
		QueryFAQs(ctx context.Context, filter FAQFilter, ordering []core.DBOrdering, page core.Page) ([]FAQ, int, error)
		GetFAQ(ctx context.Context, id string) (FAQ, error)
		UpdateFAQ(ctx context.Context, f FAQ) (FAQ, error)
		DeleteFAQ(ctx context.Context, id string) error
	}

	// VideoSigner turns a video ID into a time-limited embed URL.
	VideoSigner interface {
		EmbedURL(videoID string) (url string, expiresAt time.Time)
	}

	Service interface {
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering, page core.Page) ([]Course, int, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c Course, nc NewCourse) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		AddLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error)
		GetLesson(ctx context.Context, courseID, lessonID string) (Lesson, error)
		UpdateLesson(ctx context.Context, courseID, lessonID string, nl NewLesson) (Lesson, error)
		DeleteLesson(ctx context.Context, courseID, lessonID string) error
		// LessonView returns a lesson with its course; the video URL is signed only when withVideo is set.
		LessonView(ctx context.Context, lessonID string, withVideo bool) (LessonView, Course, error)

		CreateFAQ(ctx context.Context, nf NewFAQ) (FAQ, error)
		QueryFAQs(ctx context.Context, filter FAQFilter, ordering []core.DBOrdering, page core.Page) ([]FAQ, int, error)
		GetFAQ(ctx context.Context, id string) (FAQ, error)
		UpdateFAQ(ctx context.Context, f FAQ, nf NewFAQ) (FAQ, error)
		DeleteFAQ(ctx context.Context, id string) error
	}

	service struct {
		repo   Repository
		tx     core.Transactor
		signer VideoSigner
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tx core.Transactor, signer VideoSigner) Service {
	return &service{repo: repo, tx: tx, signer: signer}
}

// Courses

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	now := core.NowFunc().UTC()
	c := Course{
		Title:        nc.Title,
		Description:  nc.Description,
		MembershipID: nc.MembershipID,
		Published:    nc.Published,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	c.Lessons = []Lesson{}
	return c, err
}

func (svc *service) QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering, page core.Page) ([]Course, int, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryCourses(ctx, filter, ordering, page)
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	sort.SliceStable(c.Lessons, func(i, j int) bool { return c.Lessons[i].Position < c.Lessons[j].Position })
	return c, nil
}

func (svc *service) UpdateCourse(ctx context.Context, c Course, nc NewCourse) (Course, error) {
	c.Title = nc.Title
	c.Description = nc.Description
	c.MembershipID = nc.MembershipID
	c.Published = nc.Published
	c.UpdatedAt = core.NowFunc().UTC()
	lessons := c.Lessons
	c, err := svc.repo.UpdateCourse(ctx, c)
	c.Lessons = lessons
	return c, err
}

func (svc *service) DeleteCourse(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

// Lessons

func (svc *service) AddLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	var l Lesson
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := svc.repo.GetCourse(ctx, courseID)
		if err != nil {
			return err
		}
		pos := nl.Position
		if pos == 0 {
			pos = len(c.Lessons) + 1
		}
		l, err = svc.repo.CreateLesson(ctx, Lesson{
			CourseID:        c.ID,
			Title:           nl.Title,
			Description:     nl.Description,
			VideoID:         nl.VideoID,
			DurationSeconds: nl.DurationSeconds,
			Position:        pos,
		})
		return err
	})
	return l, err
}

func (svc *service) GetLesson(ctx context.Context, courseID, lessonID string) (Lesson, error) {
	l, err := svc.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	if l.CourseID != courseID {
		return Lesson{}, ErrLessonNotFound
	}
	return l, nil
}

func (svc *service) UpdateLesson(ctx context.Context, courseID, lessonID string, nl NewLesson) (Lesson, error) {
	var l Lesson
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if l, err = svc.GetLesson(ctx, courseID, lessonID); err != nil {
			return err
		}
		l.Title = nl.Title
		l.Description = nl.Description
		l.VideoID = nl.VideoID
		l.DurationSeconds = nl.DurationSeconds
		if nl.Position != 0 {
			l.Position = nl.Position
		}
		l, err = svc.repo.UpdateLesson(ctx, l)
		return err
	})
	return l, err
}

func (svc *service) DeleteLesson(ctx context.Context, courseID, lessonID string) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.GetLesson(ctx, courseID, lessonID); err != nil {
			return err
		}
		return svc.repo.DeleteLesson(ctx, lessonID)
	})
}

func (svc *service) LessonView(ctx context.Context, lessonID string, withVideo bool) (LessonView, Course, error) {
	l, err := svc.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return LessonView{}, Course{}, err
	}
	c, err := svc.repo.GetCourse(ctx, l.CourseID)
	if err != nil {
		return LessonView{}, Course{}, err
	}

	view := LessonView{Lesson: l}
	view.VideoID = ""
	if withVideo && l.VideoID != "" {
		url, exp := svc.signer.EmbedURL(l.VideoID)
		view.VideoURL = url
		view.VideoExpiresAt = &exp
	}
	return view, c, nil
}

// FAQs

func (svc *service) CreateFAQ(ctx context.Context, nf NewFAQ) (FAQ, error) {
	now := core.NowFunc().UTC()
	return svc.repo.CreateFAQ(ctx, applyFAQ(FAQ{CreatedAt: now, UpdatedAt: now}, nf))
}

func (svc *service) QueryFAQs(ctx context.Context, filter FAQFilter, ordering []core.DBOrdering, page core.Page) ([]FAQ, int, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Category = core.CleanString(filter.Category)
	return svc.repo.QueryFAQs(ctx, filter, ordering, page)
}

func (svc *service) GetFAQ(ctx context.Context, id string) (FAQ, error) {
	return svc.repo.GetFAQ(ctx, id)
}

func (svc *service) UpdateFAQ(ctx context.Context, f FAQ, nf NewFAQ) (FAQ, error) {
	f = applyFAQ(f, nf)
	f.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateFAQ(ctx, f)
}

func applyFAQ(f FAQ, nf NewFAQ) FAQ {
	f.Question = nf.Question
	f.Answer = nf.Answer
	f.Category = nf.Category
	f.Position = nf.Position
	f.Published = nf.Published
	return f
}

func (svc *service) DeleteFAQ(ctx context.Context, id string) error {
	return svc.repo.DeleteFAQ(ctx, id)
}
