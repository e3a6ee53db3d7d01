package parser

import (
	"strings"
	"testing"
)

func TestParsePlainTextEmail(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"From: Alice Sender <sender@example.com>",
		"To: recipient@example.com",
		"Subject: Test Subject",
		"Message-Id: <test123@example.com>",
		"Date: Mon, 02 Jan 2006 15:04:05 -0700",
		"Content-Type: text/plain",
		"",
		"Hello, this is a plain text email.",
	}, "\r\n")

	msg, err := New(nil).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.From != "sender@example.com" {
		t.Errorf("From: got %q, want %q", msg.From, "sender@example.com")
	}
	if msg.FromName != "Alice Sender" {
		t.Errorf("FromName: got %q, want %q", msg.FromName, "Alice Sender")
	}
	if len(msg.To) != 1 || msg.To[0] != "recipient@example.com" {
		t.Errorf("To: got %v, want [recipient@example.com]", msg.To)
	}
	if msg.Subject != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", msg.Subject, "Test Subject")
	}
	if msg.MessageID != "test123@example.com" {
		t.Errorf("MessageID: got %q, want %q", msg.MessageID, "test123@example.com")
	}
	if !strings.Contains(msg.TextBody, "plain text email") {
		t.Errorf("TextBody: got %q", msg.TextBody)
	}
	if msg.HTMLBody != "" {
		t.Errorf("HTMLBody: got %q, want empty", msg.HTMLBody)
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("Attachments: got %d, want 0", len(msg.Attachments))
	}
	if msg.Date.IsZero() {
		t.Error("Date: got zero time")
	}
}

func TestParseMultipartTextAndHTML(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"From: sender@example.com",
		"To: alice@example.com, bob@example.com",
		"Subject: Multipart Test",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=boundary123",
		"",
		"--boundary123",
		"Content-Type: text/plain",
		"",
		"Plain text body",
		"--boundary123",
		"Content-Type: text/html",
		"",
		"<html><body><p>HTML body</p></body></html>",
		"--boundary123--",
	}, "\r\n")

	msg, err := New(nil).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(msg.To) != 2 || msg.To[0] != "alice@example.com" || msg.To[1] != "bob@example.com" {
		t.Errorf("To: got %v", msg.To)
	}
	if !strings.Contains(msg.TextBody, "Plain text body") {
		t.Errorf("TextBody: got %q", msg.TextBody)
	}
	if !strings.Contains(msg.HTMLBody, "<p>HTML body</p>") {
		t.Errorf("HTMLBody: got %q", msg.HTMLBody)
	}
}

func TestParseEmailWithAttachments(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: With Attachment",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=mixedboundary",
		"",
		"--mixedboundary",
		"Content-Type: text/plain",
		"",
		"Email body text",
		"--mixedboundary",
		"Content-Type: application/pdf; name=\"report.pdf\"",
		"Content-Disposition: attachment; filename=\"report.pdf\"",
		"Content-Transfer-Encoding: base64",
		"",
		"SGVsbG8gV29ybGQ=",
		"--mixedboundary--",
	}, "\r\n")

	msg, err := New(nil).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(msg.TextBody, "Email body text") {
		t.Errorf("TextBody: got %q", msg.TextBody)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(msg.Attachments))
	}

	att := msg.Attachments[0]
	if att.Filename != "report.pdf" {
		t.Errorf("Filename: got %q, want %q", att.Filename, "report.pdf")
	}
	if att.ContentType != "application/pdf" {
		t.Errorf("ContentType: got %q, want %q", att.ContentType, "application/pdf")
	}
	if string(att.Content) != "Hello World" {
		t.Errorf("Content: got %q, want %q", att.Content, "Hello World")
	}
	if att.Size() != int64(len("Hello World")) {
		t.Errorf("Size: got %d, want %d", att.Size(), len("Hello World"))
	}
}

func TestParseAttachmentWithoutFilename(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"From: sender@example.com",
		"Subject: Nameless",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=bnd",
		"",
		"--bnd",
		"Content-Type: text/plain",
		"",
		"body",
		"--bnd",
		"Content-Type: application/pdf",
		"Content-Disposition: attachment",
		"",
		"%PDF-1.4",
		"--bnd--",
	}, "\r\n")

	msg, err := New(nil).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("Attachments: got %d, want 1", len(msg.Attachments))
	}
	if msg.Attachments[0].Filename != "attachment.pdf" {
		t.Errorf("Filename: got %q, want %q", msg.Attachments[0].Filename, "attachment.pdf")
	}
}

func TestParseThreadingHeaders(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"From: sender@example.com",
		"Subject: Re: original",
		"Message-Id: <reply@example.com>",
		"In-Reply-To: <orig@example.com>",
		"References: <root@example.com> <orig@example.com>",
		"Content-Type: text/plain",
		"",
		"reply body",
	}, "\r\n")

	msg, err := New(nil).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(msg.InReplyTo) != 1 || msg.InReplyTo[0] != "orig@example.com" {
		t.Errorf("InReplyTo: got %v", msg.InReplyTo)
	}
	if len(msg.References) != 2 || msg.References[1] != "orig@example.com" {
		t.Errorf("References: got %v", msg.References)
	}
}

func TestParseEncodedSubject(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"From: sender@example.com",
		"Subject: =?UTF-8?B?0J/RgNC40LLQtdGC?=",
		"Content-Type: text/plain",
		"",
		"body",
	}, "\r\n")

	msg, err := New(nil).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Subject != "Привет" {
		t.Errorf("Subject: got %q, want %q", msg.Subject, "Привет")
	}
}

func TestParseUnparseableFromLeftEmpty(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"From: not a valid address",
		"Subject: Broken From",
		"Content-Type: text/plain",
		"",
		"body",
	}, "\r\n")

	msg, err := New(nil).Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.From != "" {
		t.Errorf("From: got %q, want empty for unparseable header", msg.From)
	}
	if msg.Subject != "Broken From" {
		t.Errorf("Subject: got %q", msg.Subject)
	}
}

func TestParseGarbageFails(t *testing.T) {
	t.Parallel()

	// No header at all: the first line is not a valid header field.
	raw := "this is not an email at all\r\n\r\njust bytes\r\n"

	if _, err := New(nil).Parse(strings.NewReader(raw)); err == nil {
		t.Fatal("expected parse failure for non-message input")
	}
}
