// Package contact relays messages from the contact page.
package contact

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/soch-storefront/internal/relay"
)

const (
	// DefaultTopic is used when the shopper leaves the subject empty.
	DefaultTopic = "General Inquiry"
	// Subject is the e-mail subject of every relayed contact message.
	Subject = "Mail received from contact us page"
)

// Message is a contact form submission.
type Message struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Body    string
}

// ValidationError lists the form fields that block sending.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks that name, email and message are present.
func (m Message) Validate() error {
	var verr ValidationError
	if strings.TrimSpace(m.Name) == "" {
		verr.Missing = append(verr.Missing, "name")
	}
	email := strings.TrimSpace(m.Email)
	if email == "" {
		verr.Missing = append(verr.Missing, "email")
	} else if _, err := mail.ParseAddress(email); err != nil {
		verr.Invalid = append(verr.Invalid, "email")
	}
	if strings.TrimSpace(m.Body) == "" {
		verr.Missing = append(verr.Missing, "message")
	}
	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return &verr
	}
	return nil
}

// Service sends contact messages through the relay.
type Service struct {
	relay   relay.Submitter
	prober  relay.Prober
	timeout time.Duration
	now     func() time.Time
}

// NewService creates a Service. prober may be nil.
func NewService(submitter relay.Submitter, prober relay.Prober, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{relay: submitter, prober: prober, timeout: timeout, now: time.Now}
}

// Send validates m and relays it. Relay failures come back as *relay.Failure.
func (s *Service) Send(ctx context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if err := s.send(ctx, s.submission(m)); err != nil {
		failure := relay.Classify(err)
		zctx.From(ctx).Warn("Contact message failed",
			zap.String("kind", string(failure.Kind)),
			zap.Error(err),
		)
		return failure
	}

	zctx.From(ctx).Info("Contact message sent")
	return nil
}

func (s *Service) send(ctx context.Context, sub relay.Submission) error {
	if s.prober != nil {
		if err := s.prober.Probe(ctx); err != nil {
			return errors.Wrap(err, "probe")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.relay.Submit(ctx, sub); err != nil {
		return errors.Wrap(err, "submit contact message")
	}
	return nil
}

func (s *Service) submission(m Message) relay.Submission {
	topic := strings.TrimSpace(m.Subject)
	if topic == "" {
		topic = DefaultTopic
	}
	phone := strings.TrimSpace(m.Phone)
	if phone == "" {
		phone = "Not provided"
	}
	return relay.Submission{
		Subject: Subject,
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.TrimSpace(m.Email),
		Phone:   phone,
		Message: m.Body,
		Fields: []relay.Field{
			{Name: "topic", Value: topic},
			{Name: "submission_date", Value: s.now().Format(time.RFC1123)},
			{Name: "page_source", Value: "Contact Us Page"},
		},
	}
}
