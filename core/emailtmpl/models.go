package emailtmpl

import (
	"time"

	"github.com/trezcool/forma/core"
)

var OrderingFields = []string{"key", "name", "updated_at"}

// Template is an email whose subject and bodies contain {{var}} placeholders.
type Template struct {
	ID        string    `json:"id" db:"id"`
	Key       string    `json:"key" db:"key"`
	Name      string    `json:"name" db:"name"`
	Subject   string    `json:"subject" db:"subject"`
	HTMLBody  string    `json:"html_body" db:"html_body"`
	TextBody  string    `json:"text_body" db:"text_body"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// IsDefault is set on built-in templates not overridden in the database.
	IsDefault bool `json:"is_default" db:"-"`
}

type NewTemplate struct {
	Key      string `json:"key" validate:"required,max=64,alphanum_"`
	Name     string `json:"name" validate:"notblank"`
	Subject  string `json:"subject" validate:"notblank"`
	HTMLBody string `json:"html_body" validate:"required_without=TextBody"`
	TextBody string `json:"text_body"`
}

func (nt *NewTemplate) Validate() error {
	nt.Key = core.CleanString(nt.Key, true /* lower */)
	nt.Name = core.CleanString(nt.Name)
	nt.Subject = core.CleanString(nt.Subject)
	return core.Validate.Struct(nt)
}

// PreviewRequest renders a template (stored, default or ad hoc) with sample variables.
type PreviewRequest struct {
	Key      string            `json:"key"`
	Subject  string            `json:"subject"`
	HTMLBody string            `json:"html_body"`
	TextBody string            `json:"text_body"`
	Vars     map[string]string `json:"vars"`
}

func (pr *PreviewRequest) Validate() error {
	pr.Key = core.CleanString(pr.Key, true /* lower */)
	if pr.Key == "" && pr.Subject == "" && pr.HTMLBody == "" && pr.TextBody == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "key", Error: "provide a template key or a template"})
	}
	return nil
}

type Rendered struct {
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}
