// Package smtp implements the inbound SMTP receiver: it accepts
// anonymous server-to-server deliveries for the local domain, parses
// each message and materializes it in the mailbox directory.
package smtp

import (
	"log/slog"

	"github.com/emersion/go-smtp"

	"github.com/shineum/mail-bridge/internal/directory"
	"github.com/shineum/mail-bridge/internal/parser"
	"github.com/shineum/mail-bridge/internal/storage"
)

// Backend creates a session for every accepted connection. Sessions are
// independent; the directory is the only shared state.
type Backend struct {
	directory directory.Directory
	store     *storage.Store
	parser    *parser.Parser
	domain    string
	log       *slog.Logger
}

// NewBackend creates an SMTP backend serving mail for domain. A nil
// logger falls back to the default.
func NewBackend(dir directory.Directory, store *storage.Store, domain string, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		directory: dir,
		store:     store,
		parser:    parser.New(log),
		domain:    domain,
		log:       log,
	}
}

// NewSession is called for each new inbound connection. Connections are
// accepted without authentication or transport encryption: this bridge
// takes anonymous server-to-server delivery attempts and treats every
// payload as untrusted input.
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	b.log.Debug("inbound connection", "remote", c.Conn().RemoteAddr().String())

	return &Session{backend: b}, nil
}
