package emailsvc

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"strings"
	"testing"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/forma/core"
	logsvc "github.com/trezcool/forma/services/logger"
)

func testConf() *core.Config {
	return &core.Config{
		AppName:          "Forma",
		DefaultFromEmail: mail.Address{Name: "Forma", Address: "noreply@forma.test"},
		SendgridAPIKey:   "SG.key",
	}
}

func testMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@forma.test"}},
		Subject:     "Welcome",
		TextContent: "Hi Jane",
		HTMLContent: "<p>Hi Jane</p>",
		TemplateKey: "welcome",
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := NewConsoleServiceMock(testConf(), logsvc.NewZapLogger(zap.NewNop()))

	noRecipient := testMessage()
	noRecipient.To = nil
	noContent := testMessage()
	noContent.TextContent, noContent.HTMLContent = "", ""

	svc.SendMessages(testMessage(), noRecipient, noContent)
	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Welcome", sent[0].Subject)

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestConsoleService_format(t *testing.T) {
	svc := NewConsoleServiceMock(testConf(), logsvc.NewZapLogger(zap.NewNop()))
	msg := testMessage()
	require.NoError(t, msg.Attach(strings.NewReader("hello"), "hello.txt", "text/plain"))

	body, err := svc.format(*msg)
	require.NoError(t, err)
	assert.Contains(t, body, "From: \"Forma\" <noreply@forma.test>\r\n")
	assert.Contains(t, body, "Subject: [Forma] Welcome\r\n")
	assert.Contains(t, body, "To: \"Jane\" <jane@forma.test>\r\n")
	assert.Contains(t, body, "Content-Type: multipart/mixed; boundary=")
	assert.Contains(t, body, "<p>Hi Jane</p>")
	assert.Contains(t, body, "aGVsbG8=") // base64("hello")
	assert.NotContains(t, body, "CC:")
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(testConf(), logsvc.NewZapLogger(zap.NewNop())).(*sendgridService)
	msg := testMessage()
	msg.Cc = []mail.Address{{Address: "coach@forma.test"}}

	var got struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			To      []struct{ Email string } `json:"to"`
			Cc      []struct{ Email string } `json:"cc"`
			Subject string                   `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(sgmail.GetRequestBody(svc.prepare(*msg)))).Decode(&got))

	assert.Equal(t, "noreply@forma.test", got.From.Email)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "[Forma] Welcome", got.Personalizations[0].Subject)
	assert.Equal(t, "jane@forma.test", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "coach@forma.test", got.Personalizations[0].Cc[0].Email)
	require.Len(t, got.Content, 2)
	assert.Equal(t, "text/plain", got.Content[0].Type)
	assert.Equal(t, "text/html", got.Content[1].Type)
	assert.Equal(t, []string{"welcome"}, got.Categories)
}
