package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPDispatcher struct {
	cfg SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg}
}

func (d *SMTPDispatcher) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	subject := fmt.Sprintf("Approval requested: %s %s", req.EntryLabel, req.Counterparty)
	body := fmt.Sprintf(
		"<p>A document from <b>%s</b> is waiting for your approval.</p>"+
			"<p>Amount: %d %s<br>Step %d of %d<br>Document: %s</p>",
		req.Counterparty, req.Amount, req.Currency, req.StepNumber, req.TotalSteps, req.DocumentID,
	)
	return d.send(req.ApproverEmail, subject, body)
}

func (d *SMTPDispatcher) SendDecisionNotice(ctx context.Context, notice DecisionNotice) error {
	verdict := "approved"
	if !notice.Approved {
		verdict = "rejected"
	}
	subject := fmt.Sprintf("Document %s %s", notice.DocumentID, verdict)
	body := fmt.Sprintf("<p>Your document %s was <b>%s</b>.</p>", notice.DocumentID, verdict)
	if notice.Reason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", notice.Reason)
	}
	return d.send(notice.SubmitterEmail, subject, body)
}

func (d *SMTPDispatcher) send(to, subject, htmlBody string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("notification: empty recipient")
	}
	auth := smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to, subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, d.cfg.From, []string{to}, msg)
}
