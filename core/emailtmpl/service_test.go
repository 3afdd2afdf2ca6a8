package emailtmpl_test

import (
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/forma/core"
	"github.com/trezcool/forma/core/emailtmpl"
	"github.com/trezcool/forma/tests"
)

func TestService_Resolve(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TemplateSvc
	ctx := context.Background()

	tmpl, err := svc.Resolve(ctx, emailtmpl.KeyWelcome)
	require.NoError(t, err)
	assert.True(t, tmpl.IsDefault)
	assert.Empty(t, tmpl.ID)

	_, err = svc.Resolve(ctx, "unknown")
	assert.True(t, core.IsNotFound(err))

	nt := emailtmpl.NewTemplate{Key: " Welcome ", Name: "Custom welcome", Subject: "Hey {{name}}", TextBody: "Go to {{login_url}}"}
	require.NoError(t, nt.Validate())
	stored, err := svc.Create(ctx, nt)
	require.NoError(t, err)
	assert.Equal(t, emailtmpl.KeyWelcome, stored.Key)

	_, err = svc.Create(ctx, nt)
	assert.Equal(t, []string{"key"}, testutil.ErrorFields(err))

	tmpl, err = svc.Resolve(ctx, emailtmpl.KeyWelcome)
	require.NoError(t, err)
	assert.False(t, tmpl.IsDefault)
	assert.Equal(t, stored.ID, tmpl.ID)

	tmpls, total, err := svc.Query(ctx, "", nil, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, len(emailtmpl.DefaultKeys()), total)
	keys := make([]string, 0, len(tmpls))
	for _, tm := range tmpls {
		keys = append(keys, tm.Key)
	}
	assert.Equal(t, []string{"achievement_unlocked", "membership_activated", "password_reset", "welcome"}, keys)
	assert.False(t, tmpls[3].IsDefault)

	tmpls, total, err = svc.Query(ctx, "RESET", nil, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, emailtmpl.KeyPasswordReset, tmpls[0].Key)

	// deleting the override brings the built-in template back
	require.NoError(t, svc.Delete(ctx, stored.ID))
	tmpl, err = svc.Resolve(ctx, emailtmpl.KeyWelcome)
	require.NoError(t, err)
	assert.True(t, tmpl.IsDefault)
}

func TestNewTemplate_Validate(t *testing.T) {
	tests := []struct {
		name       string
		nt         emailtmpl.NewTemplate
		wantFields []string
	}{
		{
			name: "valid",
			nt:   emailtmpl.NewTemplate{Key: "promo_1", Name: "Promo", Subject: "Deals", HTMLBody: "<p>hi</p>"},
		},
		{
			name:       "bad key",
			nt:         emailtmpl.NewTemplate{Key: "promo-1", Name: "Promo", Subject: "Deals", TextBody: "hi"},
			wantFields: []string{"key"},
		},
		{
			name:       "blanks",
			nt:         emailtmpl.NewTemplate{Key: "promo", Name: " ", Subject: ""},
			wantFields: []string{"name", "subject", "html_body"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.nt.Validate()
			if tc.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tc.wantFields, testutil.ErrorFields(err))
		})
	}
}

func TestService_Compose(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TemplateSvc
	ctx := context.Background()
	to := []mail.Address{{Name: "Ann", Address: "ann@example.com"}}

	msg, err := svc.Compose(ctx, emailtmpl.KeyAchievementUnlocked, to, map[string]string{
		"name":                    "Ann",
		"achievement_name":        "First <workout>",
		"achievement_description": "Log & finish",
	})
	require.NoError(t, err)
	assert.Equal(t, to, msg.To)
	assert.Equal(t, emailtmpl.KeyAchievementUnlocked, msg.TemplateKey)
	assert.Equal(t, "Achievement unlocked: First <workout>", msg.Subject)
	assert.Contains(t, msg.HTMLContent, "<strong>First &lt;workout&gt;</strong>: Log &amp; finish")
	assert.Contains(t, msg.TextContent, "You unlocked First <workout>: Log & finish")

	_, err = svc.Compose(ctx, "nope", to, nil)
	assert.True(t, core.IsNotFound(err))
}

func TestService_Preview(t *testing.T) {
	app := testutil.NewApp()
	svc := app.TemplateSvc
	ctx := context.Background()

	pr := emailtmpl.PreviewRequest{Key: " WELCOME ", Vars: map[string]string{"name": "Bo"}}
	require.NoError(t, pr.Validate())
	r, err := svc.Preview(ctx, pr)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Forma!", r.Subject)
	assert.Contains(t, r.TextBody, "Hi Bo,")

	r, err = svc.Preview(ctx, emailtmpl.PreviewRequest{Subject: "{{app_name}} x {{who}}", Vars: map[string]string{"app_name": "Gym"}})
	require.NoError(t, err)
	assert.Equal(t, "Gym x", r.Subject)

	pr = emailtmpl.PreviewRequest{}
	assert.Equal(t, []string{"key"}, testutil.ErrorFields(pr.Validate()))
}
