// Package directory defines the durable mailbox/message/attachment
// store the bridge talks to. The bridge core depends only on the
// Directory interface; the Postgres adapter lives alongside it.
package directory

import (
	"context"
	"errors"
	"time"
)

// ErrMailboxNotFound is returned by FindMailbox when no provisioned
// mailbox matches the requested address.
var ErrMailboxNotFound = errors.New("mailbox not found")

// Message lifecycle and placement values used by the bridge.
const (
	StatusSent  = "sent"
	FolderInbox = "inbox"
)

// AttachmentStatusStored marks an attachment whose content is on disk
// and whose record is registered.
const AttachmentStatusStored = "stored"

// Mailbox identifies a provisioned local mailbox.
type Mailbox struct {
	ID        string
	LocalPart string
	Domain    string
}

// Address returns the full mailbox address.
func (m Mailbox) Address() string {
	return m.LocalPart + "@" + m.Domain
}

// Message is the durable record of a delivered email. A Message is
// created once; only its attachments manifest may be updated afterwards,
// at most once per delivery.
type Message struct {
	ID          string
	MailboxID   string
	FromAddress string
	FromDomain  string
	FromName    string
	ToAddress   string
	ToDomain    string
	Subject     string
	BodyText    string
	BodyHTML    string
	ContentType string
	Status      string
	Folder      string

	// MessageID is the protocol message identifier from the received
	// message, empty when the message carried none.
	MessageID string

	SentAt      time.Time
	Attachments []AttachmentSummary
}

// AttachmentRecord is the durable record of one stored attachment.
type AttachmentRecord struct {
	ID          string
	MailboxID   string
	MessageID   string
	Key         string
	Filename    string
	Size        int64
	ContentType string
	Status      string
}

// AttachmentSummary is one entry of a message's attachments manifest.
type AttachmentSummary struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Directory is the persistence boundary of the bridge. Implementations
// must serialize conflicting writes themselves; the bridge performs no
// locking of its own.
type Directory interface {
	// FindMailbox resolves a provisioned mailbox by address parts.
	// It returns ErrMailboxNotFound when no mailbox matches.
	FindMailbox(ctx context.Context, localPart, domain string) (*Mailbox, error)

	// CreateMessage persists a new message record and fills in its ID.
	CreateMessage(ctx context.Context, msg *Message) error

	// CreateAttachment persists a new attachment record and fills in
	// its ID.
	CreateAttachment(ctx context.Context, att *AttachmentRecord) error

	// UpdateMessageAttachments replaces the attachments manifest of an
	// existing message in a single write.
	UpdateMessageAttachments(ctx context.Context, messageID string, manifest []AttachmentSummary) error
}
