// Package services provides external service integrations such as the attach gateway and e-mail delivery
package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/pn-backup/models"
	"github.com/amirphl/pn-backup/utils"
	"go.uber.org/zap"
	mail "gopkg.in/mail.v2"
)

var ErrNoRecipient = errors.New("no e-mail recipient configured")

// NotificationService delivers run reports by e-mail
type NotificationService interface {
	// SendTenantReport mails the tenant contact, falling back to the admin address
	SendTenantReport(tenant models.Tenant, body string) error
	SendAdminError(err error) error
	SendAdminReport(subject, body string) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(email, subject, message string) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	emailProvider EmailProvider
	adminTo       string
	subjectPrefix string
	logger        *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(emailProvider EmailProvider, adminTo, subjectPrefix string, logger *zap.Logger) NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationServiceImpl{
		emailProvider: emailProvider,
		adminTo:       strings.TrimSpace(adminTo),
		subjectPrefix: strings.TrimSpace(subjectPrefix),
		logger:        logger,
	}
}

func (s *NotificationServiceImpl) subject(subject string) string {
	if s.subjectPrefix == "" {
		return subject
	}
	return s.subjectPrefix + " " + subject
}

func (s *NotificationServiceImpl) send(to, subject, body string) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}
	if to == "" {
		return ErrNoRecipient
	}
	if !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: %s", to)
	}

	full := s.subject(subject)
	if err := s.emailProvider.SendEmail(to, full, body); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", full, to, err)
	}
	s.logger.Info("Email sent", zap.String("to", to), zap.String("subject", full))
	return nil
}

// SendTenantReport sends the per-tenant run report
func (s *NotificationServiceImpl) SendTenantReport(tenant models.Tenant, body string) error {
	to := strings.TrimSpace(tenant.Email)
	if to == "" {
		to = s.adminTo
	}
	return s.send(to, utils.TenantReportSubject, body)
}

// SendAdminError notifies the admin that a tenant or the run failed
func (s *NotificationServiceImpl) SendAdminError(cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return s.send(s.adminTo, utils.AdminErrorSubject, "Error: "+msg)
}

// SendAdminReport sends an arbitrary report to the admin address
func (s *NotificationServiceImpl) SendAdminReport(subject, body string) error {
	return s.send(s.adminTo, subject, body)
}

// SMTPEmailProvider delivers plain-text mail through an SMTP relay
type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	useTLS    bool
	timeout   time.Duration
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail string, useTLS bool, timeout time.Duration) EmailProvider {
	if timeout <= 0 {
		timeout = utils.SMTPTimeout
	}
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		useTLS:    useTLS,
		timeout:   timeout,
	}
}

func (p *SMTPEmailProvider) newMessage(email, subject, message string) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", p.fromEmail)
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", message)
	return m
}

func (p *SMTPEmailProvider) dialer() *mail.Dialer {
	// credentials are sent only when a user is configured
	d := mail.NewDialer(p.host, p.port, p.username, p.password)
	d.Timeout = p.timeout
	if p.useTLS {
		d.StartTLSPolicy = mail.MandatoryStartTLS
	} else {
		d.StartTLSPolicy = mail.NoStartTLS
	}
	return d
}

func (p *SMTPEmailProvider) SendEmail(email, subject, message string) error {
	if p.host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	return p.dialer().DialAndSend(p.newMessage(email, subject, message))
}

// SentEmail is a message captured by MockEmailProvider
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailProvider records messages instead of sending them
type MockEmailProvider struct {
	mu   sync.Mutex
	sent []SentEmail
	// Err, when set, is returned by every send after recording the attempt
	Err error
}

func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(email, subject, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, SentEmail{To: email, Subject: subject, Body: message})
	return p.Err
}

// GetSentEmails returns a copy of the recorded messages
func (p *MockEmailProvider) GetSentEmails() []SentEmail {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SentEmail(nil), p.sent...)
}

func (p *MockEmailProvider) ClearSentEmails() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}
