package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contentflow/internal/automation"
	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/repository/memory"
)

var t0 = time.Date(2024, 2, 3, 14, 5, 0, 0, time.UTC)

type fakeSES struct {
	sent []*sesv2.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, in)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func seed(t *testing.T) (*memory.Users, *memory.Contents) {
	t.Helper()
	ctx := context.Background()
	users, contents := memory.NewUsers(), memory.NewContents()
	email, _ := domain.NewEmail("ada@example.com")
	u, _ := domain.NewUser("u1", email, "Ada", nil, t0)
	require.NoError(t, users.Save(ctx, u))
	c, err := domain.NewContent("c1", "Spring Launch", domain.ContentBlogArticle, "Body", "u1", t0)
	require.NoError(t, err)
	require.NoError(t, contents.Save(ctx, c))
	return users, contents
}

func TestNotifier_SendsOnPublish(t *testing.T) {
	users, contents := seed(t)
	ses := &fakeSES{}
	n, err := New(ses, automation.NewMemoryLedger(time.Minute), users, contents, Config{FromEmail: "noreply@contentflow.io", FromName: "contentflow"})
	require.NoError(t, err)

	require.NoError(t, n.Handle(context.Background(), domain.NewContentPublishedEvent("c1", "u1", t0)))

	require.Len(t, ses.sent, 1)
	in := ses.sent[0]
	assert.Equal(t, "contentflow <noreply@contentflow.io>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"ada@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Published: Spring Launch", aws.ToString(in.Content.Simple.Subject.Data))
	body := aws.ToString(in.Content.Simple.Body.Text.Data)
	assert.Contains(t, body, "Hi Ada,")
	assert.Contains(t, body, `blog article "Spring Launch"`)
}

func TestNotifier_IgnoresOtherEvents(t *testing.T) {
	users, contents := seed(t)
	ses := &fakeSES{}
	n, err := New(ses, automation.NewMemoryLedger(time.Minute), users, contents, Config{FromEmail: "noreply@contentflow.io"})
	require.NoError(t, err)

	c, _ := contents.GetByID(context.Background(), "c1")
	require.NoError(t, n.Handle(context.Background(), domain.NewContentCreatedEvent(c, t0)))
	require.NoError(t, n.Handle(context.Background(), domain.NewContentPublishedEvent("missing", "u1", t0)))
	assert.Empty(t, ses.sent)
}

func TestNotifier_SendError(t *testing.T) {
	users, contents := seed(t)
	n, err := New(&fakeSES{err: errors.New("MessageRejected")}, automation.NewMemoryLedger(time.Minute), users, contents, Config{FromEmail: "a@b.io"})
	require.NoError(t, err)
	err = n.Handle(context.Background(), domain.NewContentPublishedEvent("c1", "u1", t0))
	assert.ErrorContains(t, err, "MessageRejected")
}

func TestNotifier_RedeliveryDoesNotEmailTwice(t *testing.T) {
	users, contents := seed(t)
	ses := &fakeSES{}
	ledger := automation.NewMemoryLedger(time.Minute)
	n, err := New(ses, ledger, users, contents, Config{FromEmail: "noreply@contentflow.io"})
	require.NoError(t, err)

	ev := domain.NewContentPublishedEvent("c1", "u1", t0)
	for i := 0; i < 4; i++ {
		require.NoError(t, n.Handle(context.Background(), ev))
	}
	assert.Len(t, ses.sent, 1)

	d, ok := ledger.Get(ev.EventID(), LedgerTarget)
	require.True(t, ok)
	assert.Equal(t, automation.StatusDelivered, d.Status)
}

func TestNotifier_RetriesAfterFailedSend(t *testing.T) {
	users, contents := seed(t)
	ses := &fakeSES{err: errors.New("Throttling")}
	ledger := automation.NewMemoryLedger(time.Minute)
	n, err := New(ses, ledger, users, contents, Config{FromEmail: "noreply@contentflow.io"})
	require.NoError(t, err)

	ev := domain.NewContentPublishedEvent("c1", "u1", t0)
	require.Error(t, n.Handle(context.Background(), ev))
	d, _ := ledger.Get(ev.EventID(), LedgerTarget)
	assert.Equal(t, automation.StatusFailed, d.Status)

	ses.err = nil
	require.NoError(t, n.Handle(context.Background(), ev))
	require.NoError(t, n.Handle(context.Background(), ev))
	assert.Len(t, ses.sent, 1)
}

func TestNew_RequiresLedger(t *testing.T) {
	_, err := New(&fakeSES{}, nil, nil, nil, Config{FromEmail: "a@b.io"})
	assert.Error(t, err)
}

func TestNew_BadTemplate(t *testing.T) {
	_, err := New(&fakeSES{}, automation.NewMemoryLedger(0), nil, nil, Config{Subject: "{% if %}"})
	assert.Error(t, err)
}
