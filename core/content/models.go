package content

import (
	"time"

	"github.com/trezcool/forma/core"
)

var (
	CourseOrderingFields = []string{"title", "published", "created_at"}
	FAQOrderingFields    = []string{"position", "category", "question", "created_at"}
)

type Course struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	MembershipID *string   `json:"membership_id" db:"membership_id"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	Lessons      []Lesson  `json:"lessons,omitempty" db:"-"`
}

type Lesson struct {
	ID              string `json:"id" db:"id"`
	CourseID        string `json:"course_id" db:"course_id"`
	Title           string `json:"title" db:"title"`
	Description     string `json:"description" db:"description"`
	VideoID         string `json:"video_id,omitempty" db:"video_id"`
	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
	Position        int    `json:"position" db:"position"`
}

// LessonView is a lesson as a member sees it: the raw video ID is replaced with a signed embed URL.
type LessonView struct {
	Lesson
	VideoURL       string     `json:"video_url,omitempty"`
	VideoExpiresAt *time.Time `json:"video_expires_at,omitempty"`
}

type FAQ struct {
	ID        string    `json:"id" db:"id"`
	Question  string    `json:"question" db:"question"`
	Answer    string    `json:"answer" db:"answer"`
	Category  string    `json:"category" db:"category"`
	Position  int       `json:"position" db:"position"`
	Published bool      `json:"published" db:"published"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type NewCourse struct {
	Title        string  `json:"title" validate:"notblank"`
	Description  string  `json:"description"`
	MembershipID *string `json:"membership_id"`
	Published    bool    `json:"published"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	if nc.MembershipID != nil {
		nc.MembershipID = core.StringPtr(core.CleanString(*nc.MembershipID))
	}
	return core.Validate.Struct(nc)
}

type NewLesson struct {
	Title           string `json:"title" validate:"notblank"`
	Description     string `json:"description"`
	VideoID         string `json:"video_id"`
	DurationSeconds int    `json:"duration_seconds" validate:"min=0"`
	Position        int    `json:"position" validate:"min=0"`
}

func (nl *NewLesson) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	nl.VideoID = core.CleanString(nl.VideoID)
	return core.Validate.Struct(nl)
}

type NewFAQ struct {
	Question  string `json:"question" validate:"notblank"`
	Answer    string `json:"answer" validate:"notblank"`
	Category  string `json:"category"`
	Position  int    `json:"position" validate:"min=0"`
	Published bool   `json:"published"`
}

func (nf *NewFAQ) Validate() error {
	nf.Question = core.CleanString(nf.Question)
	nf.Answer = core.CleanString(nf.Answer)
	nf.Category = core.CleanString(nf.Category)
	return core.Validate.Struct(nf)
}

type CourseFilter struct {
	Search       string
	Published    *bool
	MembershipID string
}

type FAQFilter struct {
	Search    string
	Category  string
	Published *bool
}
