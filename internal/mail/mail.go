// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mail sends transactional and campaign e-mail over SMTP and renders
// Markdown bodies into sanitized HTML.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned when SMTP settings are incomplete.
var ErrNotConfigured = errors.New("smtp is not configured")

const dialTimeout = 15 * time.Second

// Config holds SMTP settings.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	// Secure selects implicit TLS. Otherwise STARTTLS is used when offered.
	Secure bool
}

// IsConfigured reports whether every required setting is present.
func (c Config) IsConfigured() bool {
	return c.Host != "" && c.Port > 0 && c.Username != "" && c.Password != "" && c.FromEmail != ""
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Message is a single outbound e-mail.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	// Headers are added verbatim, e.g. List-Unsubscribe.
	Headers map[string]string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through one SMTP server. Each Send opens its own
// connection.
type SMTPMailer struct {
	cfg       Config
	tlsConfig *tls.Config
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
	}
}

// Check connects and authenticates without sending anything.
func (m *SMTPMailer) Check(ctx context.Context) error {
	c, err := m.connect(ctx)
	if err != nil {
		return err
	}
	return c.Quit()
}

// Send implements Sender.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	body, err := m.build(msg)
	if err != nil {
		return err
	}

	c, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.Mail(m.cfg.FromEmail); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end of data: %w", err)
	}
	return c.Quit()
}

func (m *SMTPMailer) connect(ctx context.Context) (*smtp.Client, error) {
	if !m.cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var (
		conn net.Conn
		err  error
	)
	if m.cfg.Secure {
		d := &tls.Dialer{Config: m.tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", m.cfg.addr())
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", m.cfg.addr())
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline.Add(time.Minute))
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}

	if !m.cfg.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(m.tlsConfig); err != nil {
				_ = c.Close()
				return nil, fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if ok, _ := c.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := c.Auth(auth); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("smtp auth: %w", err)
		}
	}
	return c, nil
}

// build renders msg as a multipart/alternative MIME message.
func (m *SMTPMailer) build(msg Message) ([]byte, error) {
	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.FromEmail}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("From", from.String())
	header.Set("To", msg.To)
	header.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header.Set("Date", time.Now().UTC().Format(time.RFC1123Z))
	header.Set("Message-ID", "<"+uuid.NewString()+"@"+domainOf(m.cfg.FromEmail)+">")
	header.Set("MIME-Version", "1.0")
	header.Set("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	for k, v := range msg.Headers {
		header.Set(k, v)
	}

	var out bytes.Buffer
	for k, vs := range header {
		for _, v := range vs {
			fmt.Fprintf(&out, "%s: %s\r\n", k, v)
		}
	}
	out.WriteString("\r\n")

	text := msg.Text
	if text == "" {
		text = "Please view this email in an HTML-capable email client."
	}
	if err := writePart(mw, "text/plain; charset=utf-8", text); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writePart(mw, "text/html; charset=utf-8", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	out.Write(buf.Bytes())
	return out.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, body string) error {
	pw, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(pw)
	if _, err := qp.Write([]byte(body)); err != nil {
		return err
	}
	return qp.Close()
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return "localhost"
}
