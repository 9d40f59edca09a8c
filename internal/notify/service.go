// Package notify sends workflow email via SMTP. Delivery is best-effort
// from the workflow's perspective: a state transition never fails or rolls
// back because a mail could not be sent.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

func NewService(config Config) *Service {
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   smtp.PlainAuth("", config.Username, config.Password, config.Host),
	}
}

// IsConfigured returns true if email is configured.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// ApprovalRequestData fills the approval-request template. The two URLs
// embed single-purpose signed tokens; the recipient never logs in.
type ApprovalRequestData struct {
	AppName      string
	ApproverName string
	CreatorName  string
	KindLabel    string
	Number       string
	Title        string
	Total        string
	ApproveURL   string
	RejectURL    string
	ExpiryHours  int
}

// DecisionNoticeData fills the decision-notice template sent back to the
// document's creator.
type DecisionNoticeData struct {
	AppName     string
	CreatorName string
	KindLabel   string
	Number      string
	Title       string
	Outcome     string
	Note        string
}

// SendApprovalRequest mails the approver their approve/reject links.
func (s *Service) SendApprovalRequest(to string, data ApprovalRequestData) error {
	if data.AppName == "" {
		data.AppName = "Procure"
	}
	subject := fmt.Sprintf("Approval requested: %s %s", data.KindLabel, data.Number)
	html, err := renderTemplate(approvalRequestTemplate, data)
	if err != nil {
		return fmt.Errorf("render approval request template: %w", err)
	}
	return s.sendHTML([]string{to}, subject, html)
}

// SendDecisionNotice informs the creator of the outcome.
func (s *Service) SendDecisionNotice(to string, data DecisionNoticeData) error {
	if data.AppName == "" {
		data.AppName = "Procure"
	}
	subject := fmt.Sprintf("%s %s was %s", data.KindLabel, data.Number, strings.ToLower(data.Outcome))
	html, err := renderTemplate(decisionNoticeTemplate, data)
	if err != nil {
		return fmt.Errorf("render decision notice template: %w", err)
	}
	return s.sendHTML([]string{to}, subject, html)
}

func (s *Service) sendHTML(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-procure"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
