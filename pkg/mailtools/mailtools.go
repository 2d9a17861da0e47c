// Package mailtools provides the email tool. By default the tool runs in
// mock mode and only formats what would be sent; configuring an SMTP host
// switches it to real delivery.
package mailtools

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/golemcli/golem/pkg/tool"
)

// Options configures email delivery. With an empty Host the tool stays in
// mock mode.
type Options struct {
	Host string
	Port int
	From string
}

// Mailer sends or mocks email depending on its options.
type Mailer struct {
	opts Options
}

// NewMailer creates a Mailer. A non-empty host with an empty from address is
// rejected.
func NewMailer(opts Options) (*Mailer, error) {
	if opts.Host != "" && opts.From == "" {
		return nil, errors.New("from address is required when an SMTP host is set")
	}
	if opts.Port == 0 {
		opts.Port = 25
	}
	return &Mailer{opts: opts}, nil
}

// Mock reports whether the mailer only formats messages.
func (m *Mailer) Mock() bool {
	return m.opts.Host == ""
}

// Send delivers one message, or formats it in mock mode. The returned string
// is the tool-facing confirmation.
func (m *Mailer) Send(to, subject, content string) (string, error) {
	if m.Mock() {
		return fmt.Sprintf("[MOCK EMAIL]\nTo: %s\nSubject: %s\nContent: %s\n(Email not actually sent.)", to, subject, content), nil
	}

	addr := fmt.Sprintf("%s:%d", m.opts.Host, m.opts.Port)
	msg := strings.Join([]string{
		"From: " + m.opts.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		content,
	}, "\r\n")

	if err := smtp.SendMail(addr, nil, m.opts.From, []string{to}, []byte(msg)); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return fmt.Sprintf("Email sent to %s.", to), nil
}

// Tools returns the email tool specs bound to mailer.
func Tools(mailer *Mailer) ([]tool.Spec, error) {
	if mailer == nil {
		return nil, errors.New("mailer is required")
	}
	return []tool.Spec{sendEmailTool(mailer)}, nil
}

// Register builds the email tools and registers them all.
func Register(registry *tool.Registry, mailer *Mailer) error {
	specs, err := Tools(mailer)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := registry.Register(spec); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", spec.Name, err)
		}
	}
	return nil
}

func sendEmailTool(mailer *Mailer) tool.Spec {
	return tool.Spec{
		Name:        "send_email",
		Description: "Send an email",
		Category:    tool.CategoryCommunication,
		Params: []tool.Param{
			{Name: "to", Type: "string", Description: "The recipient email address", Required: true},
			{Name: "subject", Type: "string", Description: "The email subject", Required: true},
			{Name: "content", Type: "string", Description: "The email content", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			to, _ := args["to"].(string)
			subject, _ := args["subject"].(string)
			content, _ := args["content"].(string)
			return mailer.Send(to, subject, content)
		},
	}
}
