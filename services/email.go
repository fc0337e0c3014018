package services

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"os"
	texttemplate "text/template"

	"doc_builder_app_go/config"
	"doc_builder_app_go/services/logging"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

var (
	ErrEmailNotConfigured = errors.New("RESEND_API_KEY not configured")
	ErrEmptyEmail         = errors.New("email must have either HTMLBody or TextBody")
)

// Email represents an email message
type Email struct {
	To          []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []EmailAttachment
}

// EmailAttachment is a file sent along with an email
type EmailAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// EmailBodies overrides the built-in bodies. A template named
// "document_export" is looked up as document_export_{lang}.html, then
// document_export.html, and the same for .txt.
var EmailBodies fs.FS = os.DirFS("templates/emails")

type executor interface {
	Execute(w io.Writer, data any) error
}

func parseBody(name, ext, src string) (executor, error) {
	if ext == ".html" {
		return htmltemplate.New(name + ext).Parse(src)
	}
	return texttemplate.New(name + ext).Parse(src)
}

func execBody(name, ext, src string, data any) (string, error) {
	tmpl, err := parseBody(name, ext, src)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s%s: %w", name, ext, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s%s: %w", name, ext, err)
	}
	return buf.String(), nil
}

// readBody finds the localized or base file for one extension
func readBody(fsys fs.FS, name, lang, ext string) (string, error) {
	candidates := []string{name + ext}
	if lang != "" {
		candidates = append([]string{name + "_" + lang + ext}, candidates...)
	}
	var lastErr error
	for _, file := range candidates {
		content, err := fs.ReadFile(fsys, file)
		if err == nil {
			return string(content), nil
		}
		lastErr = err
	}
	return "", lastErr
}

// emailBody pairs the built-in html and text sources of one email
type emailBody struct {
	name string
	html string
	text string
}

// render prefers the override files and falls back to the built-in sources
// when either file is missing
func (b emailBody) render(fsys fs.FS, lang string, data any) (html, text string, err error) {
	if fsys != nil {
		htmlSrc, htmlErr := readBody(fsys, b.name, lang, ".html")
		textSrc, textErr := readBody(fsys, b.name, lang, ".txt")
		if htmlErr == nil && textErr == nil {
			return b.exec(htmlSrc, textSrc, data)
		}
		zap.L().Debug("email override not found, using built-in body",
			zap.String("template", b.name), zap.String("lang", lang))
	}
	return b.exec(b.html, b.text, data)
}

func (b emailBody) exec(htmlSrc, textSrc string, data any) (html, text string, err error) {
	if html, err = execBody(b.name, ".html", htmlSrc, data); err != nil {
		return "", "", err
	}
	if text, err = execBody(b.name, ".txt", textSrc, data); err != nil {
		return "", "", err
	}
	return html, text, nil
}

// SendEmail delivers email through Resend. Test mode only logs it.
func SendEmail(cfg *config.Config, email *Email) error {
	if cfg.EmailTestMode {
		logEmail(email)
		return nil
	}
	if cfg.ResendAPIKey == "" {
		return ErrEmailNotConfigured
	}

	params, err := buildSendRequest(cfg, email)
	if err != nil {
		return err
	}

	sent, err := resend.NewClient(cfg.ResendAPIKey).Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	zap.L().Info("email sent via resend",
		zap.String("id", sent.Id),
		zap.Strings("to", email.To),
		zap.Int("attachments", len(email.Attachments)),
		zap.String("api_key", logging.MaskSecret(cfg.ResendAPIKey)))
	return nil
}

func buildSendRequest(cfg *config.Config, email *Email) (*resend.SendEmailRequest, error) {
	if email.HTMLBody == "" && email.TextBody == "" {
		return nil, ErrEmptyEmail
	}
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	for _, a := range email.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     a.Content,
		})
	}
	return params, nil
}

func logEmail(email *Email) {
	names := make([]string, 0, len(email.Attachments))
	for _, a := range email.Attachments {
		names = append(names, a.Filename)
	}
	html := email.HTMLBody
	if len(html) > 500 {
		html = html[:500]
	}
	zap.L().Info("email logged (test mode, not sent)",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("text", email.TextBody),
		zap.String("html", html),
		zap.Strings("attachments", names))
}

// ExportEmailData fills the document export email
type ExportEmailData struct {
	ClientName   string
	BusinessName string
	Title        string
	Number       string
	Total        string
	PageCount    int
}

var exportEmail = emailBody{
	name: "document_export",
	html: `<p>Hello {{.ClientName}},</p>
<p>{{.BusinessName}} sent you {{.Title}}{{if .Number}} {{.Number}}{{end}} ({{.PageCount}} page{{if ne .PageCount 1}}s{{end}}).</p>
{{if .Total}}<p>Total: <strong>{{.Total}}</strong></p>{{end}}
<p>The document is attached as a PDF.</p>`,
	text: `Hello {{.ClientName}},

{{.BusinessName}} sent you {{.Title}}{{if .Number}} {{.Number}}{{end}} ({{.PageCount}} page{{if ne .PageCount 1}}s{{end}}).
{{if .Total}}Total: {{.Total}}
{{end}}
The document is attached as a PDF.`,
}

// BuildExportEmail creates the email delivering an exported PDF
func BuildExportEmail(to, lang string, data ExportEmailData, pdf EmailAttachment) (*Email, error) {
	html, text, err := exportEmail.render(EmailBodies, lang, data)
	if err != nil {
		return nil, err
	}
	subject := data.Title
	if data.Number != "" {
		subject += " " + data.Number
	}
	if data.BusinessName != "" {
		subject += " from " + data.BusinessName
	}
	return &Email{
		To:          []string{to},
		Subject:     subject,
		HTMLBody:    html,
		TextBody:    text,
		Attachments: []EmailAttachment{pdf},
	}, nil
}
