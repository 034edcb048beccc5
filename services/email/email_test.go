package emailsvc

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbowkidsrealm/jaja2-sub000/assets"
	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/tests"
)

func newMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Pam Parent", Address: "parent@school.test"}},
		Subject:      "New message: Field trip",
		TemplateName: "message",
		TemplateData: map[string]string{
			"RecipientName": "Pam Parent",
			"SenderName":    "Tom Teacher",
			"Subject":       "Field trip",
			"Body":          "Bring a packed lunch.",
			"MessageID":     "msg-9",
		},
	}
}

func TestConsoleService_format(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(t)
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf, logger)

	var buf bytes.Buffer
	svc := NewConsoleService(conf, &buf, logger)
	require.NoError(t, svc.sendMessage(newMessage()))

	out := buf.String()
	assert.Contains(t, out, "Subject: [Jaja] New message: Field trip\r\n")
	assert.Contains(t, out, `To: "Pam Parent" <parent@school.test>`)
	assert.Contains(t, out, "Tom Teacher sent you a message: Field trip")
	assert.Contains(t, out, "<strong>Tom Teacher</strong>")
	assert.Contains(t, out, "http://localhost:3000/messages/msg-9")
	assert.NotContains(t, out, "CC:")
}

func TestConsoleServiceMock(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(t)
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf, logger)

	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(newMessage(), &core.EmailMessage{Subject: "no recipient", BodyStr: "hi"})

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "parent@school.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Bring a packed lunch.")

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestSendgridService_send(t *testing.T) {
	conf := testutil.NewConfig()
	conf.SendgridAPIKey = "sg-key"
	svc := NewSendgridService(conf, testutil.NewLogger(t))

	var got rest.Request
	svc.api = func(req rest.Request) (*rest.Response, error) {
		got = req
		return &rest.Response{StatusCode: 202}, nil
	}

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Pam", Address: "parent@school.test"}},
		Subject:     "Hello",
		TextContent: "plain",
		Metadata:    map[string]string{"message_id": "msg-1"},
	}
	svc.send(msg)

	assert.Equal(t, rest.Post, got.Method)
	assert.Equal(t, sendgridHost+sendgridEndpoint, got.BaseURL)
	assert.Equal(t, "Bearer sg-key", got.Headers["Authorization"])

	var body struct {
		Subject          string `json:"subject"`
		Personalizations []struct {
			Subject    string            `json:"subject"`
			To         []struct{ Email string }
			CustomArgs map[string]string `json:"custom_args"`
		} `json:"personalizations"`
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(got.Body, &body))
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Jaja] Hello", body.Personalizations[0].Subject)
	assert.Equal(t, "parent@school.test", body.Personalizations[0].To[0].Email)
	assert.Equal(t, map[string]string{"message_id": "msg-1"}, body.Personalizations[0].CustomArgs)
	require.Len(t, body.Content, 1, "no html part without html content")
	assert.Equal(t, "text/plain", body.Content[0].Type)
}
