package deliver

import (
	"strings"
	"testing"
	"time"
)

func TestBuildMessageHeaders(t *testing.T) {
	t.Parallel()

	req := Request{
		From:     "bridge@example.com",
		To:       "bob@remote.test",
		Subject:  "Hello",
		TextBody: "text body",
		HTMLBody: "<p>html body</p>",
	}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	raw := string(buildMessage(req, "<abc@mail.example.com>", now))

	for _, want := range []string{
		"From: bridge@example.com\r\n",
		"To: bob@remote.test\r\n",
		"Subject: Hello\r\n",
		"Message-ID: <abc@mail.example.com>\r\n",
		"X-Mailer: mail-bridge\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: multipart/alternative",
		"text body",
		"<p>html body</p>",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestBuildMessageHTMLDefaultsToText(t *testing.T) {
	t.Parallel()

	req := Request{
		From:     "bridge@example.com",
		To:       "bob@remote.test",
		Subject:  "Plain only",
		TextBody: "just text",
	}

	raw := string(buildMessage(req, "<id@host>", time.Now()))

	if got := strings.Count(raw, "just text"); got != 2 {
		t.Errorf("text body should appear in both alternatives, found %d times", got)
	}
	if !strings.Contains(raw, "text/html") {
		t.Error("expected an html alternative even without an explicit HTML body")
	}
}

func TestBuildMessageThreadingHeaders(t *testing.T) {
	t.Parallel()

	req := Request{
		From:       "bridge@example.com",
		To:         "bob@remote.test",
		Subject:    "Re: thread",
		TextBody:   "reply",
		InReplyTo:  []string{"orig@remote.test"},
		References: []string{"<root@remote.test>", "orig@remote.test"},
	}

	raw := string(buildMessage(req, "<id@host>", time.Now()))

	if !strings.Contains(raw, "In-Reply-To: <orig@remote.test>\r\n") {
		t.Errorf("missing bracketed In-Reply-To:\n%s", raw)
	}
	if !strings.Contains(raw, "References: <root@remote.test> <orig@remote.test>\r\n") {
		t.Errorf("missing References:\n%s", raw)
	}
}

func TestBuildMessageOmitsEmptyThreadingHeaders(t *testing.T) {
	t.Parallel()

	req := Request{
		From:     "bridge@example.com",
		To:       "bob@remote.test",
		Subject:  "fresh",
		TextBody: "body",
	}

	raw := string(buildMessage(req, "<id@host>", time.Now()))

	if strings.Contains(raw, "In-Reply-To") || strings.Contains(raw, "References") {
		t.Errorf("threading headers should be absent:\n%s", raw)
	}
}

func TestBuildMessageOmitsBlankThreadingIDs(t *testing.T) {
	t.Parallel()

	req := Request{
		From:       "bridge@example.com",
		To:         "bob@remote.test",
		Subject:    "blank ids",
		TextBody:   "body",
		InReplyTo:  []string{"  ", ""},
		References: []string{""},
	}

	raw := string(buildMessage(req, "<id@host>", time.Now()))

	if strings.Contains(raw, "In-Reply-To") || strings.Contains(raw, "References") {
		t.Errorf("whitespace-only ids should not produce empty headers:\n%s", raw)
	}
}

func TestBuildMessageEncodesSubject(t *testing.T) {
	t.Parallel()

	req := Request{
		From:     "bridge@example.com",
		To:       "bob@remote.test",
		Subject:  "Привет",
		TextBody: "body",
	}

	raw := string(buildMessage(req, "<id@host>", time.Now()))

	if !strings.Contains(raw, "Subject: =?UTF-8?") {
		t.Errorf("non-ASCII subject should be RFC 2047 encoded:\n%s", raw)
	}
}
