// Package notify emails content owners when their content goes live.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/osteele/liquid"

	"github.com/ignite/contentflow/internal/domain"
	"github.com/ignite/contentflow/internal/pkg/logger"
)

// SESAPI is the subset of the SES v2 client used by the notifier.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// UserLookup loads the content owner.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// ContentLookup loads the published content.
type ContentLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Content, error)
}

// Ledger records which events already produced a notice, so a redelivered
// event does not email the owner twice. automation.Ledger satisfies it.
type Ledger interface {
	Claim(ctx context.Context, eventID, target, eventType string) (bool, error)
	MarkDelivered(ctx context.Context, eventID, target string) error
	MarkFailed(ctx context.Context, eventID, target, reason string) error
}

// LedgerTarget is the ledger target under which notices are recorded.
const LedgerTarget = "notify.owner"

const (
	defaultSubject = `Published: {{ title }}`
	defaultBody    = `Hi {{ name }},

Your {{ content_type | replace: "_", " " }} "{{ title }}" was published on {{ published_at | date: "%B %d, %Y at %H:%M UTC" }}.

- contentflow`
)

// Config configures a Notifier.
type Config struct {
	FromEmail string
	FromName  string
	Subject   string
	Body      string
}

// Notifier sends the publication email.
type Notifier struct {
	ses      SESAPI
	ledger   Ledger
	users    UserLookup
	contents ContentLookup
	from     string
	subject  *liquid.Template
	body     *liquid.Template
}

// New parses the subject and body templates and returns a Notifier.
func New(ses SESAPI, ledger Ledger, users UserLookup, contents ContentLookup, cfg Config) (*Notifier, error) {
	if ledger == nil {
		return nil, fmt.Errorf("notifier requires a delivery ledger")
	}
	if cfg.Subject == "" {
		cfg.Subject = defaultSubject
	}
	if cfg.Body == "" {
		cfg.Body = defaultBody
	}
	engine := liquid.NewEngine()
	subject, err := engine.ParseString(cfg.Subject)
	if err != nil {
		return nil, fmt.Errorf("parse notification subject: %w", err)
	}
	body, err := engine.ParseString(cfg.Body)
	if err != nil {
		return nil, fmt.Errorf("parse notification body: %w", err)
	}
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &Notifier{ses: ses, ledger: ledger, users: users, contents: contents, from: from, subject: subject, body: body}, nil
}

// Handle reacts to ContentPublishedEvent and ignores everything else.
// Each event produces at most one sent notice; a failed send is released
// in the ledger so the next delivery of the event retries it. Content or
// users deleted since publication are skipped.
func (n *Notifier) Handle(ctx context.Context, ev domain.Event) error {
	published, ok := ev.(domain.ContentPublishedEvent)
	if !ok {
		return nil
	}
	claimed, err := n.ledger.Claim(ctx, ev.EventID(), LedgerTarget, ev.EventType())
	if err != nil {
		return fmt.Errorf("claim publication notice: %w", err)
	}
	if !claimed {
		logger.Info("publication notice already sent", "event_id", ev.EventID(), "content_id", published.ContentID)
		return nil
	}
	if err := n.send(ctx, published); err != nil {
		if markErr := n.ledger.MarkFailed(ctx, ev.EventID(), LedgerTarget, err.Error()); markErr != nil {
			logger.Error("release publication notice", "event_id", ev.EventID(), "error", markErr)
		}
		return err
	}
	return n.ledger.MarkDelivered(ctx, ev.EventID(), LedgerTarget)
}

func (n *Notifier) send(ctx context.Context, published domain.ContentPublishedEvent) error {
	c, err := n.contents.GetByID(ctx, published.ContentID)
	if err != nil {
		return fmt.Errorf("load content %s: %w", published.ContentID, err)
	}
	u, err := n.users.GetByID(ctx, published.UserID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", published.UserID, err)
	}
	if c == nil || u == nil {
		logger.Warn("publication notice skipped", "content_id", published.ContentID, "user_id", published.UserID)
		return nil
	}

	bindings := liquid.Bindings{
		"name":         u.Name,
		"title":        c.Title,
		"content_type": string(c.Type),
		"published_at": published.PublishedAt,
	}
	subject, err := n.subject.RenderString(bindings)
	if err != nil {
		return fmt.Errorf("render notification subject: %w", err)
	}
	body, err := n.body.RenderString(bindings)
	if err != nil {
		return fmt.Errorf("render notification body: %w", err)
	}

	out, err := n.ses.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: []string{u.Email.String()}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("event_type"), Value: aws.String("content_published")},
			{Name: aws.String("content_id"), Value: aws.String(c.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("send publication notice for %s: %w", c.ID, err)
	}
	logger.Info("publication notice sent", "content_id", c.ID, "email", u.Email.String(),
		"message_id", aws.ToString(out.MessageId))
	return nil
}
