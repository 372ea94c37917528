// Package email, bildirim email'leri için soyutlama katmanı.
//
// Şu anki implementasyon Resend API kullanır. Service katmanı sadece
// Sender interface'ine bağımlıdır.
package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
)

// Sender, email gönderimi için interface.
type Sender interface {
	// SendMention, kullanıcıya bir konuşmada bahsedildiğini bildirir.
	// link, konuşmayı açan uygulama URL'idir.
	SendMention(ctx context.Context, toEmail, authorName, preview, link string) error
}

type resendSender struct {
	client    *resend.Client
	fromEmail string
}

// NewResendSender, Resend API client'ı ile yeni bir Sender oluşturur.
// fromEmail Resend'de doğrulanmış bir domain altında olmalı.
func NewResendSender(apiKey, fromEmail string) Sender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
	}
}

// SendMention, mention email'ini gönderir. preview HTML-escape edilir.
func (s *resendSender) SendMention(ctx context.Context, toEmail, authorName, preview, link string) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;background-color:#f8fafc;font-family:Arial,Helvetica,sans-serif;">
  <p style="color:#0f172a;font-size:15px;margin:0 0 12px 0;"><strong>%s</strong> mentioned you:</p>
  <blockquote style="color:#334155;font-size:14px;border-left:3px solid #6366f1;margin:0 0 16px 0;padding:4px 12px;">%s</blockquote>
  <a href="%s" style="color:#6366f1;font-size:14px;">Open conversation</a>
</body>
</html>`, html.EscapeString(authorName), html.EscapeString(preview), html.EscapeString(link))

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("huddle <%s>", s.fromEmail),
		To:      []string{toEmail},
		Subject: fmt.Sprintf("%s mentioned you", authorName),
		Html:    body,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send mention email: %w", err)
	}
	return nil
}
