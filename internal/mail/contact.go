// Package mail delivers contact-form messages and keeps a copy of each one.
package mail

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/gomail.v2"

	"github.com/Zachkp/folio/internal/config"
)

var (
	ErrInvalidMessage = errors.New("mail: name, email and message are required")
	ErrInvalidEmail   = errors.New("mail: invalid email address")
	ErrMessageTooLong = fmt.Errorf("%w: message longer than %d characters", ErrInvalidMessage, maxMessageLength)
	ErrNotConfigured  = errors.New("mail: SMTP credentials not configured")
)

const maxMessageLength = 5000

type Message struct {
	Name    string
	Email   string
	Body    string
	Created time.Time
}

// Validate trims the fields and checks they are usable. The body limit counts
// characters, not bytes.
func (m *Message) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Body = strings.TrimSpace(m.Body)
	if m.Name == "" || m.Email == "" || m.Body == "" {
		return ErrInvalidMessage
	}
	if utf8.RuneCountInString(m.Body) > maxMessageLength {
		return ErrMessageTooLong
	}
	addr, err := netmail.ParseAddress(m.Email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	m.Email = addr.Address
	return nil
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender sends messages through an SMTP relay.
type SMTPSender struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if s.cfg.SMTPUser == "" || s.cfg.SMTPPassword == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(s.compose(m)); err != nil {
		return fmt.Errorf("failed to send contact email: %w", err)
	}
	return nil
}

func (s *SMTPSender) compose(m Message) *gomail.Message {
	to := s.cfg.To
	if to == "" {
		to = s.cfg.SMTPUser
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.SMTPUser)
	msg.SetHeader("To", to)
	msg.SetHeader("Reply-To", m.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Portfolio Contact: %s", m.Name))
	msg.SetBody("text/plain", fmt.Sprintf(`New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, m.Name, m.Email, m.Body))
	return msg
}

// Inbox stores every submission, delivered or not, so nothing is lost when
// SMTP is down.
type Inbox struct {
	db *sql.DB
}

func NewInbox(db *sql.DB) *Inbox {
	return &Inbox{db: db}
}

func (i *Inbox) Save(ctx context.Context, m Message, delivered bool) (int64, error) {
	if m.Created.IsZero() {
		m.Created = time.Now().UTC().Truncate(time.Second)
	}
	res, err := i.db.ExecContext(ctx, `
		INSERT INTO contact_messages (name, email, message, delivered, created_at)
		VALUES (?, ?, ?, ?, ?)`, m.Name, m.Email, m.Body, delivered, m.Created)
	if err != nil {
		return 0, fmt.Errorf("failed to save contact message: %w", err)
	}
	return res.LastInsertId()
}

// Counts returns the number of stored and undelivered messages.
func (i *Inbox) Counts(ctx context.Context) (total, undelivered int64, err error) {
	err = i.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN delivered = 0 THEN 1 ELSE 0 END), 0)
		FROM contact_messages`).Scan(&total, &undelivered)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count contact messages: %w", err)
	}
	return total, undelivered, nil
}

// Service validates, stores and forwards contact messages.
type Service struct {
	sender Sender
	inbox  *Inbox
}

func NewService(sender Sender, inbox *Inbox) *Service {
	return &Service{sender: sender, inbox: inbox}
}

// Submit returns a validation error before anything is stored. Once the
// message is valid it is always saved; a delivery failure is returned after
// saving.
func (s *Service) Submit(ctx context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	sendErr := s.sender.Send(ctx, m)
	if _, err := s.inbox.Save(ctx, m, sendErr == nil); err != nil {
		return err
	}
	return sendErr
}

func (s *Service) Inbox() *Inbox {
	return s.inbox
}
