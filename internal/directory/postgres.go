package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Postgres implements Directory on top of a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to PostgreSQL using the given connection string
// and verifies the connection.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close closes the underlying database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// FindMailbox resolves a provisioned mailbox by local part and domain.
func (p *Postgres) FindMailbox(ctx context.Context, localPart, domain string) (*Mailbox, error) {
	query := `
        SELECT id, local_part, domain
        FROM mailboxes
        WHERE local_part = $1 AND domain = $2
    `

	mailbox := &Mailbox{}
	err := p.db.QueryRowContext(ctx, query, localPart, domain).Scan(
		&mailbox.ID,
		&mailbox.LocalPart,
		&mailbox.Domain,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s@%s", ErrMailboxNotFound, localPart, domain)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mailbox: %w", err)
	}

	return mailbox, nil
}

// CreateMessage inserts a new message record and fills in msg.ID.
func (p *Postgres) CreateMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	attachments := msg.Attachments
	if attachments == nil {
		attachments = []AttachmentSummary{}
	}
	manifest, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("failed to encode attachments manifest: %w", err)
	}

	query := `
        INSERT INTO messages (
            id, mailbox_id,
            from_address, from_domain, from_name,
            to_address, to_domain,
            subject, body_text, body_html, content_type,
            status, folder, message_id, sent_at, attachments
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), $15, $16)
    `

	_, err = p.db.ExecContext(ctx, query,
		msg.ID, msg.MailboxID,
		msg.FromAddress, msg.FromDomain, msg.FromName,
		msg.ToAddress, msg.ToDomain,
		msg.Subject, msg.BodyText, msg.BodyHTML, msg.ContentType,
		msg.Status, msg.Folder, msg.MessageID, msg.SentAt, manifest,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// CreateAttachment inserts a new attachment record and fills in att.ID.
func (p *Postgres) CreateAttachment(ctx context.Context, att *AttachmentRecord) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}

	query := `
        INSERT INTO attachments (
            id, mailbox_id, message_id,
            storage_key, filename, size, content_type, status
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := p.db.ExecContext(ctx, query,
		att.ID, att.MailboxID, att.MessageID,
		att.Key, att.Filename, att.Size, att.ContentType, att.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}

	return nil
}

// UpdateMessageAttachments replaces the attachments manifest of an
// existing message in one write.
func (p *Postgres) UpdateMessageAttachments(ctx context.Context, messageID string, manifest []AttachmentSummary) error {
	encoded, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode attachments manifest: %w", err)
	}

	query := `UPDATE messages SET attachments = $2 WHERE id = $1`

	result, err := p.db.ExecContext(ctx, query, messageID, encoded)
	if err != nil {
		return fmt.Errorf("failed to update attachments manifest: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("message %s not found", messageID)
	}

	return nil
}
