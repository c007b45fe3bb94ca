package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"retiree-match/internal/model"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EmailConfig 邮件配置。
type EmailConfig struct {
	Provider      string `mapstructure:"provider"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	From          string `mapstructure:"from"`
	Region        string `mapstructure:"region"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// EmailMessage 表示一封邮件。
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// EmailSender 抽象发送接口，便于测试替换。
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient 封装 SMTP 发送。
type SMTPClient struct {
	addr string
	auth smtp.Auth
}

func NewSMTPClient(cfg EmailConfig) *SMTPClient {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPClient{addr: addr, auth: auth}
}

func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := buildEmailData(msg)
	if err != nil {
		return err
	}
	return smtp.SendMail(c.addr, c.auth, msg.From, msg.To, data)
}

// LinkBuilder 将通知中的站内链接转换为邮件可用链接。
type LinkBuilder interface {
	Link(ctx context.Context, email, target string) (string, error)
}

// EmailNotifier 将通知渲染为邮件并发送。
type EmailNotifier struct {
	cfg    EmailConfig
	sender EmailSender
	links  LinkBuilder
}

// NewEmailNotifier 创建 EmailNotifier；sender 为空时使用 SMTP。
func NewEmailNotifier(cfg EmailConfig, sender EmailSender, links LinkBuilder) *EmailNotifier {
	if sender == nil {
		sender = NewSMTPClient(cfg)
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "New WiseUp Notification: "
	}
	return &EmailNotifier{cfg: cfg, sender: sender, links: links}
}

// Send 向单个收件人发送通知邮件。
func (n *EmailNotifier) Send(ctx context.Context, to string, payload model.NotificationPayload) error {
	if to == "" {
		return fmt.Errorf("recipient address missing")
	}

	actions := make([]model.NotificationAction, 0, len(payload.Actions))
	for _, a := range payload.Actions {
		url := a.URL
		if n.links != nil {
			link, err := n.links.Link(ctx, to, a.URL)
			if err != nil {
				return fmt.Errorf("build link for %q: %w", a.Label, err)
			}
			url = link
		}
		actions = append(actions, model.NotificationAction{Label: a.Label, URL: url})
	}

	body, err := renderHTML(payload.Title, payload.Message, actions)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	msg := EmailMessage{
		From:    n.cfg.From,
		To:      []string{to},
		Subject: n.cfg.SubjectPrefix + payload.Title,
		Text:    buildText(payload.Message, actions),
		HTML:    body,
	}
	return n.sender.Send(ctx, msg)
}

func buildText(message string, actions []model.NotificationAction) string {
	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n")
	for _, a := range actions {
		b.WriteString(fmt.Sprintf("\n%s: %s", a.Label, a.URL))
	}
	b.WriteString("\n")
	return b.String()
}

// renderHTML 以节点树构造邮件正文，文本与属性均由 html.Render 转义。
func renderHTML(title, message string, actions []model.NotificationAction) (string, error) {
	body := element(atom.Body, nil)
	body.AppendChild(textElement(atom.H2, title))
	for _, line := range strings.Split(message, "\n") {
		body.AppendChild(textElement(atom.P, line))
	}
	if len(actions) > 0 {
		p := element(atom.P, nil)
		for _, a := range actions {
			link := element(atom.A, []html.Attribute{
				{Key: "href", Val: a.URL},
				{Key: "style", Val: "display:inline-block;padding:12px 24px;color:#2f27ce;border:1px solid #2f27ce;border-radius:10px;text-decoration:none;font-weight:600;"},
			})
			link.AppendChild(&html.Node{Type: html.TextNode, Data: a.Label})
			p.AppendChild(link)
		}
		body.AppendChild(p)
	}

	root := element(atom.Html, nil)
	root.AppendChild(body)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func element(a atom.Atom, attrs []html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func textElement(a atom.Atom, text string) *html.Node {
	n := element(a, nil)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// buildEmailData 同时带有文本与 HTML 时生成 multipart/alternative，主题按 RFC 2047 编码。
func buildEmailData(msg EmailMessage) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ","))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTML == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(msg.Text)
		return b.Bytes(), nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	parts := []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, fmt.Errorf("create mime part: %w", err)
		}
		if _, err := io.WriteString(w, p.content); err != nil {
			return nil, fmt.Errorf("write mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mime body: %w", err)
	}

	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	b.Write(body.Bytes())
	return b.Bytes(), nil
}
