package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title    string `json:"title" validate:"notblank"`
	Handle   string `json:"handle" validate:"omitempty,alphanum_"`
	Required string `json:"required_field" validate:"required"`
	Ignored  string `json:"-"`
}

func TestValidateCustomTags(t *testing.T) {
	err := Validate.Struct(sample{Title: "   ", Handle: "no-dashes!"})
	require.Error(t, err)

	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)

	got := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		got[fe.Field()] = fe.Translate(Translator)
	}
	assert.Equal(t, map[string]string{
		"title":          notBlankText,
		"handle":         alphaNumUnderText,
		"required_field": requiredText,
	}, got)
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, Validate.Struct(sample{Title: "Leg day", Handle: "leg_day_2", Required: "x"}))
}

func TestPageWindow(t *testing.T) {
	tests := []struct {
		name      string
		page      Page
		n         int
		wantStart int
		wantEnd   int
	}{
		{name: "zero page", page: Page{}, n: 7, wantStart: 0, wantEnd: 7},
		{name: "first page", page: Page{Number: 1, Size: 3}, n: 7, wantStart: 0, wantEnd: 3},
		{name: "last partial page", page: Page{Number: 3, Size: 3}, n: 7, wantStart: 6, wantEnd: 7},
		{name: "past the end", page: Page{Number: 5, Size: 3}, n: 7, wantStart: 7, wantEnd: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.page.Window(tt.n)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestOrderingClause(t *testing.T) {
	assert.Equal(t, "created_at DESC", OrderingClause(nil, "created_at DESC"))
	assert.Equal(t, "name ASC, created_at DESC", OrderingClause([]DBOrdering{
		{Field: "name", Ascending: true},
		{Field: "created_at"},
	}, "id"))
}
