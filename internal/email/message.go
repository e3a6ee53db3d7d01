// Package email defines the parsed-message data model used throughout
// the mail bridge.
package email

import "time"

// Email represents a parsed inbound email message with all its components.
type Email struct {
	// From is the bare sender address; FromName is the display name from
	// the From header, if any.
	From     string
	FromName string

	To      []string
	Subject string

	TextBody string
	HTMLBody string

	// MessageID is the protocol message identifier from the Message-ID
	// header, empty if the message carries none.
	MessageID string

	// InReplyTo and References carry the threading message identifiers,
	// used by clients to group conversations.
	InReplyTo  []string
	References []string

	Date        time.Time
	Attachments []Attachment
}

// Attachment represents a file attached to an email message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Size returns the attachment content length in bytes.
func (a Attachment) Size() int64 {
	return int64(len(a.Content))
}
