package emailsvc

import (
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sundayschool/core"
	testutil "github.com/trezcool/sundayschool/tests"
)

type syncBuffer struct {
	ch chan string
}

func (b syncBuffer) Write(p []byte) (int, error) {
	b.ch <- string(p)
	return len(p), nil
}

func TestConsoleService_SendMessages(t *testing.T) {
	logger := testutil.NopLogger{T: t}
	core.ParseEmailTemplates(logger, true)
	conf := core.NewTestConfig()

	out := syncBuffer{ch: make(chan string, 1)}
	svc := NewConsoleService(conf, logger, out)

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Jane Doe", Address: "jane@example.com"}},
			Subject:      "Tim has been enrolled in Lambs",
			TemplateName: "enrollment_created",
			TemplateData: map[string]string{
				"StudentName":  "Tim",
				"ClassName":    "Lambs",
				"GradeLevel":   "K",
				"AcademicYear": "2026",
				"ScheduleDay":  "Sunday",
				"ScheduleTime": "10:00",
			},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "jane@example.com"}}, Subject: "no content"},
	)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Tim has been enrolled in Lambs (K, 2026).")
	assert.Contains(t, sent[0].TextContent, conf.FrontendBaseURL)
	assert.Contains(t, sent[0].HTMLContent, "Lambs")

	select {
	case printed := <-out.ch:
		assert.Contains(t, printed, "Subject: [Sunday School] Tim has been enrolled in Lambs")
		assert.Contains(t, printed, `To: "Jane Doe" <jane@example.com>`)
	case <-time.After(time.Second):
		t.Fatal("email was not printed")
	}
}

func TestConsoleService_silent(t *testing.T) {
	svc := NewConsoleService(core.NewTestConfig(), testutil.NopLogger{T: t}, nil)
	svc.SendMessages(&core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, BodyStr: "hi"})
	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hi", sent[0].TextContent)
}
