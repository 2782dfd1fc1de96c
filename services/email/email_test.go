package emailsvc

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/parokia/core"
)

func digestMessage(t *testing.T) *core.EmailMessage {
	t.Helper()
	msg := &core.EmailMessage{
		Bcc:          []mail.Address{{Address: "anne@parish.org"}, {Address: "bob@parish.org"}},
		Subject:      "St. Joseph weekly digest 2024-W36",
		TemplateName: "weekly_digest",
		TemplateData: map[string]interface{}{
			"ParishName": "St. Joseph",
			"Label":      "2024-W36",
			"Text":       "# Week 2024-W36",
			"HTML":       "<h1>Week 2024-W36</h1>",
		},
	}
	require.NoError(t, msg.Attach(strings.NewReader("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), "2024-w36.ics", "text/calendar"))
	return msg
}

func TestConsoleService(t *testing.T) {
	var out bytes.Buffer
	svc := NewConsoleService(core.NewTestConfig(), &out, nil)
	svc.synchronous = true

	svc.SendMessages(digestMessage(t), &core.EmailMessage{Subject: "nobody"})

	sent := svc.Sent()
	require.Len(t, sent, 1, "messages without recipients are dropped")
	assert.Contains(t, sent[0].TextContent, "St. Joseph: week 2024-W36")

	body := out.String()
	assert.Contains(t, body, "Subject: [Parokia] St. Joseph weekly digest 2024-W36")
	assert.Contains(t, body, "BCC: <anne@parish.org>, <bob@parish.org>")
	assert.Contains(t, body, "Content-Type: multipart/mixed")
	assert.Contains(t, body, "filename=2024-w36.ics")
}

func TestConsoleServiceMock_keepsRenderedContent(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())
	msg := &core.EmailMessage{To: []mail.Address{{Address: "anne@parish.org"}}, TextContent: "already rendered", TemplateName: "weekly_digest"}
	svc.SendMessages(msg)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "already rendered", sent[0].TextContent)
}

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, nil)
	msg := digestMessage(t)
	require.NoError(t, msg.Render(conf.FrontendBaseURL))

	m := svc.prepare(*msg)
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	body := string(raw)

	require.Len(t, m.Personalizations, 1)
	assert.Len(t, m.Personalizations[0].BCC, 2)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, conf.Email.DefaultFrom.Address, m.Personalizations[0].To[0].Address)
	assert.Equal(t, "[Parokia] St. Joseph weekly digest 2024-W36", m.Personalizations[0].Subject)
	assert.Len(t, m.Content, 2)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "text/calendar", m.Attachments[0].Type)
	assert.Contains(t, body, "2024-w36.ics")
}
