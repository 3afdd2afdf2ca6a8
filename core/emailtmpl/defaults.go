package emailtmpl

// Built-in template keys
const (
	KeyWelcome             = "welcome"
	KeyPasswordReset       = "password_reset"
	KeyMembershipActivated = "membership_activated"
	KeyAchievementUnlocked = "achievement_unlocked"
)

var defaults = map[string]Template{
	KeyWelcome: {
		Key:     KeyWelcome,
		Name:    "Welcome",
		Subject: "Welcome to {{app_name}}!",
		HTMLBody: `<p>Hi {{name}},</p>
<p>Your {{app_name}} account is ready. Log in to start tracking your workouts and meals:</p>
<p><a href="{{login_url}}">{{login_url}}</a></p>`,
		TextBody: `Hi {{name}},

Your {{app_name}} account is ready. Log in to start tracking your workouts and meals:
{{login_url}}`,
	},
	KeyPasswordReset: {
		Key:     KeyPasswordReset,
		Name:    "Password reset",
		Subject: "Password reset",
		HTMLBody: `<p>Hi {{name}},</p>
<p>You're receiving this email because you requested a password reset for your {{app_name}} account.</p>
<p>Please go to the following page and choose a new password:</p>
<p><a href="{{reset_url}}">{{reset_url}}</a></p>
<p>The link is valid for {{valid_for_days}}. If you did not ask for it, ignore this email.</p>`,
		TextBody: `Hi {{name}},

You're receiving this email because you requested a password reset for your {{app_name}} account.

Please go to the following page and choose a new password:
{{reset_url}}

The link is valid for {{valid_for_days}}. If you did not ask for it, ignore this email.`,
	},
	KeyMembershipActivated: {
		Key:     KeyMembershipActivated,
		Name:    "Membership activated",
		Subject: "Your {{membership_name}} membership is active",
		HTMLBody: `<p>Hi {{name}},</p>
<p>Your <strong>{{membership_name}}</strong> membership is active from {{starts_at}} to {{ends_at}}.</p>
<p>Amount paid: {{price}}</p>`,
		TextBody: `Hi {{name}},

Your {{membership_name}} membership is active from {{starts_at}} to {{ends_at}}.
Amount paid: {{price}}`,
	},
	KeyAchievementUnlocked: {
		Key:     KeyAchievementUnlocked,
		Name:    "Achievement unlocked",
		Subject: "Achievement unlocked: {{achievement_name}}",
		HTMLBody: `<p>Well done {{name}}!</p>
<p>You unlocked <strong>{{achievement_name}}</strong>: {{achievement_description}}</p>`,
		TextBody: `Well done {{name}}!

You unlocked {{achievement_name}}: {{achievement_description}}`,
	},
}

// Default returns the built-in template for key.
func Default(key string) (Template, bool) {
	t, ok := defaults[key]
	if ok {
		t.IsDefault = true
	}
	return t, ok
}

// DefaultKeys lists the built-in template keys.
func DefaultKeys() []string {
	return []string{KeyWelcome, KeyPasswordReset, KeyMembershipActivated, KeyAchievementUnlocked}
}
