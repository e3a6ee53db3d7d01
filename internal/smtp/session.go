package smtp

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/shineum/mail-bridge/internal/directory"
	"github.com/shineum/mail-bridge/internal/email"
)

// Session handles one inbound SMTP mail transaction. Processing within
// a session is strictly sequential: parse, resolve, persist, then
// attachments; only separate connections run concurrently.
type Session struct {
	backend *Backend
	from    string
	to      []string
}

// Mail records the envelope sender. The null sender (MAIL FROM:<>) is
// accepted for bounce messages.
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	return nil
}

// Rcpt validates one envelope recipient against the local domain and
// the mailbox directory. Unknown recipients are rejected here, before
// any data is accepted.
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	localPart, domain, err := email.SplitAddress(to)
	if err != nil {
		return &smtp.SMTPError{
			Code:         501,
			EnhancedCode: smtp.EnhancedCode{5, 1, 3},
			Message:      "Malformed recipient address",
		}
	}

	if domain != s.backend.domain {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "Relaying denied",
		}
	}

	if _, err := s.backend.directory.FindMailbox(context.Background(), localPart, domain); err != nil {
		if errors.Is(err, directory.ErrMailboxNotFound) {
			return &smtp.SMTPError{
				Code:         550,
				EnhancedCode: smtp.EnhancedCode{5, 1, 1},
				Message:      "Mailbox not found",
			}
		}
		s.backend.log.Error("mailbox lookup failed", "to", to, "error", err)
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary lookup failure",
		}
	}

	s.to = append(s.to, to)
	return nil
}

// Data buffers and parses the full message, then runs the persistence
// pipeline. The delivery is acknowledged only after the message record
// exists and attachment processing has finished; attachment failures
// are isolated and never fail the delivery.
func (s *Session) Data(r io.Reader) error {
	if len(s.to) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No valid recipients",
		}
	}

	msg, err := s.backend.parser.Parse(r)
	if err != nil {
		s.backend.log.Warn("failed to parse inbound message", "from", s.from, "error", err)
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message content",
		}
	}

	ctx := context.Background()

	// Envelope truth wins for the recipient: the To header can diverge
	// from the actual delivery target (BCC, list expansion). The header
	// is preferred for the sender, with the envelope as fallback.
	recipient := s.to[0]
	sender := msg.From
	if sender == "" {
		sender = s.from
	}

	record, err := s.persistMessage(ctx, recipient, sender, msg)
	if err != nil {
		if errors.Is(err, directory.ErrMailboxNotFound) {
			return &smtp.SMTPError{
				Code:         550,
				EnhancedCode: smtp.EnhancedCode{5, 1, 1},
				Message:      "Mailbox not found",
			}
		}
		s.backend.log.Error("failed to persist message", "to", recipient, "error", err)
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary storage failure",
		}
	}

	if len(msg.Attachments) > 0 {
		s.processAttachments(ctx, record, msg.Attachments)
	}

	s.backend.log.Info("message received",
		"from", sender,
		"to", recipient,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)

	return nil
}

// persistMessage resolves the recipient mailbox and creates the message
// record. Failures here reject the whole delivery.
func (s *Session) persistMessage(ctx context.Context, recipient, sender string, msg *email.Email) (*directory.Message, error) {
	localPart, domain, err := email.SplitAddress(recipient)
	if err != nil {
		return nil, err
	}

	mailbox, err := s.backend.directory.FindMailbox(ctx, localPart, domain)
	if err != nil {
		return nil, err
	}

	// The sender may be empty (null sender) or unparseable; the domain
	// is best-effort in that case.
	_, senderDomain, _ := email.SplitAddress(sender)

	record := &directory.Message{
		MailboxID:   mailbox.ID,
		FromAddress: sender,
		FromDomain:  senderDomain,
		FromName:    msg.FromName,
		ToAddress:   recipient,
		ToDomain:    domain,
		Subject:     msg.Subject,
		BodyText:    msg.TextBody,
		BodyHTML:    msg.HTMLBody,
		ContentType: "text/html",
		Status:      directory.StatusSent,
		Folder:      directory.FolderInbox,
		MessageID:   msg.MessageID,
		SentAt:      time.Now(),
	}

	if err := s.backend.directory.CreateMessage(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// processAttachments stores and registers each attachment in order.
// Every attachment's outcome is independent: a failed write or record
// is logged and skipped, and only the successful subset ends up in the
// manifest. The already-created message is never rolled back.
func (s *Session) processAttachments(ctx context.Context, record *directory.Message, attachments []email.Attachment) {
	manifest := make([]directory.AttachmentSummary, 0, len(attachments))

	for _, att := range attachments {
		stored, err := s.backend.store.Save(att.Filename, att.Content, att.ContentType)
		if err != nil {
			s.backend.log.Error("failed to store attachment",
				"message_id", record.ID,
				"filename", att.Filename,
				"error", err,
			)
			continue
		}

		rec := &directory.AttachmentRecord{
			MailboxID: record.MailboxID,
			MessageID: record.ID,
			Key:       stored.Key,
			// The original filename is kept for display; the sanitized
			// form lives in the storage key.
			Filename:    att.Filename,
			Size:        stored.Size,
			ContentType: stored.ContentType,
			Status:      directory.AttachmentStatusStored,
		}
		if err := s.backend.directory.CreateAttachment(ctx, rec); err != nil {
			// The orphaned file on disk is tolerated; a dangling record
			// would not be.
			s.backend.log.Error("failed to register attachment",
				"message_id", record.ID,
				"key", stored.Key,
				"error", err,
			)
			continue
		}

		manifest = append(manifest, directory.AttachmentSummary{
			ID:          rec.ID,
			Key:         stored.Key,
			Filename:    att.Filename,
			Size:        stored.Size,
			ContentType: stored.ContentType,
		})
	}

	if len(manifest) == 0 {
		return
	}

	if err := s.backend.directory.UpdateMessageAttachments(ctx, record.ID, manifest); err != nil {
		s.backend.log.Error("failed to update attachments manifest",
			"message_id", record.ID,
			"error", err,
		)
	}
}

// Reset clears the current mail transaction.
func (s *Session) Reset() {
	s.from = ""
	s.to = nil
}

// Logout is called when the session ends.
func (s *Session) Logout() error {
	return nil
}
