// Package parser provides RFC 5322 email message parsing with MIME
// multipart support for the inbound receiver. Every inbound payload is
// untrusted input: nothing from a message is used before the parser has
// validated its structure.
package parser

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/shineum/mail-bridge/internal/email"
)

// Parser parses raw RFC 5322 email messages into Email structs. It
// handles plain text messages, multipart messages with text/html
// bodies, and attachments. A malformed top-level structure is a hard
// parse failure; parts with an unknown charset are decoded as-is and
// logged as warnings.
type Parser struct {
	log *slog.Logger
}

// New creates a Parser. A nil logger falls back to the default.
func New(log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{log: log}
}

// Parse reads and parses one complete message.
func (p *Parser) Parse(r io.Reader) (*email.Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && (mr == nil || !message.IsUnknownCharset(err)) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &email.Email{}

	header := mr.Header
	parseFrom(header, result)
	result.To = parseAddressList(header, "To")

	if subject, err := header.Subject(); err == nil {
		result.Subject = subject
	} else {
		result.Subject = header.Get("Subject")
	}
	if id, err := header.MessageID(); err == nil {
		result.MessageID = id
	}
	if ids, err := header.MsgIDList("In-Reply-To"); err == nil {
		result.InReplyTo = ids
	}
	if ids, err := header.MsgIDList("References"); err == nil {
		result.References = ids
	}
	if date, err := header.Date(); err == nil {
		result.Date = date
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if message.IsUnknownCharset(err) {
			p.log.Warn("unknown charset in MIME part, decoding as-is", "error", err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to read MIME part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			if err := p.readInlinePart(part, h, result); err != nil {
				p.log.Warn("failed to read inline part, skipping", "error", err)
			}
		case *mail.AttachmentHeader:
			if err := p.readAttachmentPart(part, h, result); err != nil {
				p.log.Warn("failed to read attachment part, skipping", "error", err)
			}
		}
	}

	return result, nil
}

// readInlinePart collects inline text bodies. The first text/plain and the
// first text/html part win; inline parts carrying a filename are treated
// as attachments, which some senders emit without a proper disposition.
func (p *Parser) readInlinePart(part *mail.Part, h *mail.InlineHeader, result *email.Email) error {
	mediaType, params, err := h.ContentType()
	if err != nil {
		mediaType = "text/plain"
	}

	content, err := io.ReadAll(part.Body)
	if err != nil {
		return fmt.Errorf("failed to read part content: %w", err)
	}

	if name := params["name"]; name != "" && !strings.HasPrefix(mediaType, "text/") {
		result.Attachments = append(result.Attachments, email.Attachment{
			Filename:    name,
			ContentType: mediaType,
			Content:     content,
		})
		return nil
	}

	switch mediaType {
	case "text/plain":
		if result.TextBody == "" {
			result.TextBody = string(content)
		}
	case "text/html":
		if result.HTMLBody == "" {
			result.HTMLBody = string(content)
		}
	default:
		p.log.Warn("unrecognized inline MIME part, skipping",
			"content_type", mediaType,
		)
	}
	return nil
}

// readAttachmentPart collects one attachment with its declared filename
// and media type, falling back to generated values when absent.
func (p *Parser) readAttachmentPart(part *mail.Part, h *mail.AttachmentHeader, result *email.Email) error {
	mediaType, _, err := h.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "application/octet-stream"
	}

	filename, err := h.Filename()
	if err != nil || filename == "" {
		filename = fallbackFilename(mediaType)
	}

	content, err := io.ReadAll(part.Body)
	if err != nil {
		return fmt.Errorf("failed to read attachment content: %w", err)
	}

	result.Attachments = append(result.Attachments, email.Attachment{
		Filename:    filename,
		ContentType: mediaType,
		Content:     content,
	})
	return nil
}

// parseFrom extracts the bare sender address and display name from the
// From header. An absent or unparseable header leaves From empty so the
// receiver falls back to the envelope sender.
func parseFrom(header mail.Header, result *email.Email) {
	addrs, err := header.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return
	}
	result.From = addrs[0].Address
	result.FromName = addrs[0].Name
}

// parseAddressList returns the bare addresses from an address header,
// or nil if the header is absent or unparseable.
func parseAddressList(header mail.Header, key string) []string {
	addrs, err := header.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return nil
	}
	result := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		result = append(result, addr.Address)
	}
	return result
}

// fallbackFilename generates a filename from a media type for attachments
// that do not declare one.
func fallbackFilename(mediaType string) string {
	if _, subtype, ok := strings.Cut(mediaType, "/"); ok && subtype != "" {
		return "attachment." + subtype
	}
	return "attachment"
}
