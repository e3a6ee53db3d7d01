package smtp

import (
	"log/slog"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/shineum/mail-bridge/internal/config"
)

// Server wraps the SMTP listener for inbound mail.
type Server struct {
	server *smtp.Server
	log    *slog.Logger
}

// NewServer creates the inbound SMTP server. STARTTLS is deliberately
// not offered and no authentication is required: arbitrary internet
// senders must be able to deliver here.
func NewServer(cfg config.SMTPConfig, domain string, backend *Backend) *Server {
	server := smtp.NewServer(backend)

	server.Addr = cfg.Listen
	server.Domain = domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = cfg.MaxMessageSize
	server.MaxRecipients = cfg.MaxRecipients
	server.AllowInsecureAuth = true

	return &Server{server: server, log: backend.log}
}

// ListenAndServe starts accepting connections and blocks until the
// server is closed.
func (s *Server) ListenAndServe() error {
	s.log.Info("SMTP server listening",
		"addr", s.server.Addr,
		"domain", s.server.Domain,
	)
	return s.server.ListenAndServe()
}

// Close stops the listener and closes active connections.
func (s *Server) Close() error {
	return s.server.Close()
}
