package mail

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
)

// fakeSMTP is a minimal SMTP server that accepts AUTH PLAIN and records
// every message it receives.
type fakeSMTP struct {
	ln         net.Listener
	rejectAuth bool

	mu       sync.Mutex
	messages []string
	rcpts    []string
}

func startFakeSMTP(t *testing.T, rejectAuth bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTP{ln: ln, rejectAuth: rejectAuth}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeSMTP) config() Config {
	return Config{
		Host:      "127.0.0.1",
		Port:      s.ln.Addr().(*net.TCPAddr).Port,
		Username:  "mailer",
		Password:  "secret",
		FromEmail: "news@example.com",
		FromName:  "Example News",
	}
}

func (s *fakeSMTP) serve(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP")

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			_ = tp.PrintfLine("250-localhost")
			_ = tp.PrintfLine("250 AUTH PLAIN")
		case strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 localhost")
		case strings.HasPrefix(cmd, "AUTH"):
			if s.rejectAuth {
				_ = tp.PrintfLine("535 5.7.8 authentication failed")
			} else {
				_ = tp.PrintfLine("235 2.7.0 accepted")
			}
		case strings.HasPrefix(cmd, "MAIL"):
			_ = tp.PrintfLine("250 ok")
		case strings.HasPrefix(cmd, "RCPT"):
			s.mu.Lock()
			s.rcpts = append(s.rcpts, line)
			s.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case strings.HasPrefix(cmd, "DATA"):
			_ = tp.PrintfLine("354 go ahead")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.messages = append(s.messages, string(data))
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case strings.HasPrefix(cmd, "QUIT"):
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func (s *fakeSMTP) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func TestSMTPMailer_Send(t *testing.T) {
	srv := startFakeSMTP(t, false)
	m := NewSMTPMailer(srv.config())

	err := m.Send(context.Background(), Message{
		To:      "reader@example.org",
		Subject: "Spring news",
		HTML:    "<p>Hello</p>",
		Text:    "Hello",
		Headers: map[string]string{"List-Unsubscribe": "<https://example.com/u?token=abc>"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := srv.received()
	if len(msgs) != 1 {
		t.Fatalf("received %d messages, want 1", len(msgs))
	}
	for _, want := range []string{
		"Subject: Spring news",
		"To: reader@example.org",
		"List-Unsubscribe: <https://example.com/u?token=abc>",
		"text/html",
		"<p>Hello</p>",
	} {
		if !strings.Contains(msgs[0], want) {
			t.Errorf("message missing %q:\n%s", want, msgs[0])
		}
	}
	srv.mu.Lock()
	rcpts := append([]string(nil), srv.rcpts...)
	srv.mu.Unlock()
	if len(rcpts) != 1 || !strings.Contains(rcpts[0], "reader@example.org") {
		t.Errorf("RCPT = %v", rcpts)
	}
}

func TestSMTPMailer_Check(t *testing.T) {
	t.Run("accepts credentials", func(t *testing.T) {
		srv := startFakeSMTP(t, false)
		if err := NewSMTPMailer(srv.config()).Check(context.Background()); err != nil {
			t.Fatalf("Check: %v", err)
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		srv := startFakeSMTP(t, true)
		err := NewSMTPMailer(srv.config()).Check(context.Background())
		if err == nil || !strings.Contains(err.Error(), "auth") {
			t.Fatalf("Check error = %v, want auth failure", err)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		err := NewSMTPMailer(Config{Host: "127.0.0.1"}).Check(context.Background())
		if !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("Check error = %v, want ErrNotConfigured", err)
		}
	})
}

func TestSMTPMailer_InvalidRecipient(t *testing.T) {
	srv := startFakeSMTP(t, false)
	err := NewSMTPMailer(srv.config()).Send(context.Background(), Message{To: "not an address", Subject: "x"})
	if err == nil {
		t.Fatal("expected an error for an invalid recipient")
	}
	if len(srv.received()) != 0 {
		t.Error("nothing should be sent to an invalid recipient")
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Launch\n\nWe are **live**. <script>alert(1)</script>\n\n[Docs](javascript:alert(1))")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	for _, want := range []string{"<h1", "<strong>live</strong>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
	for _, bad := range []string{"<script", "javascript:"} {
		if strings.Contains(out, bad) {
			t.Errorf("output contains %q: %s", bad, out)
		}
	}

	if got := PlainText(out); strings.Contains(got, "<") {
		t.Errorf("PlainText kept markup: %q", got)
	}
}
