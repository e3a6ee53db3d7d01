// Package deliver implements direct-to-MX outbound delivery. Messages
// are transmitted straight to the recipient domain's highest-priority
// mail exchange, bypassing any relay or smarthost.
package deliver

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/shineum/mail-bridge/internal/dns"
	"github.com/shineum/mail-bridge/internal/email"
)

// smtpPort is the standard server-to-server mail port.
const smtpPort = 25

// DialFunc opens a transport connection to a mail exchange.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Options configures an Engine.
type Options struct {
	// Hostname is announced in EHLO and used in generated Message-IDs.
	Hostname string

	// Resolver performs MX lookups. Defaults to the system resolver.
	Resolver dns.Resolver

	// Dialer opens the connection to the exchange. Defaults to a
	// net.Dialer bounded by ConnectTimeout.
	Dialer DialFunc

	// Port overrides the exchange port. Defaults to 25.
	Port int

	ConnectTimeout  time.Duration
	GreetingTimeout time.Duration
	SocketTimeout   time.Duration

	// Logger receives per-delivery diagnostics. Defaults to the
	// default logger.
	Logger *slog.Logger
}

// Request describes one outbound message. HTMLBody defaults to TextBody
// when empty. InReplyTo and References carry threading message
// identifiers for client-side conversation grouping.
type Request struct {
	From       string
	To         string
	Subject    string
	TextBody   string
	HTMLBody   string
	InReplyTo  []string
	References []string
}

// Receipt is returned on successful transmission.
type Receipt struct {
	// MessageID is the generated protocol message identifier, including
	// angle brackets.
	MessageID string
}

// Engine delivers messages directly to recipient mail exchanges. A
// single Deliver call is one blocking, non-retried attempt; concurrent
// calls for different messages are safe.
type Engine struct {
	hostname string
	resolver dns.Resolver
	dialer   DialFunc
	port     int

	connectTimeout  time.Duration
	greetingTimeout time.Duration
	socketTimeout   time.Duration

	log *slog.Logger
}

// New creates an Engine with the given options.
func New(opts Options) *Engine {
	e := &Engine{
		hostname:        opts.Hostname,
		resolver:        opts.Resolver,
		dialer:          opts.Dialer,
		port:            opts.Port,
		connectTimeout:  opts.ConnectTimeout,
		greetingTimeout: opts.GreetingTimeout,
		socketTimeout:   opts.SocketTimeout,
		log:             opts.Logger,
	}
	if e.hostname == "" {
		e.hostname = "localhost"
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.resolver == nil {
		e.resolver = dns.DefaultResolver()
	}
	if e.port == 0 {
		e.port = smtpPort
	}
	if e.connectTimeout == 0 {
		e.connectTimeout = 10 * time.Second
	}
	if e.greetingTimeout == 0 {
		e.greetingTimeout = 5 * time.Second
	}
	if e.socketTimeout == 0 {
		e.socketTimeout = 10 * time.Second
	}
	if e.dialer == nil {
		dialer := &net.Dialer{Timeout: e.connectTimeout}
		e.dialer = dialer.DialContext
	}
	return e
}

// Deliver transmits one message to the recipient's highest-priority
// exchange. It performs exactly one attempt: resolution, connection and
// transmission failures surface to the caller, which owns retry policy.
// Nothing is persisted here.
func (e *Engine) Deliver(ctx context.Context, req Request) (*Receipt, error) {
	_, domain, err := email.SplitAddress(req.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", req.To, err)
	}

	hosts, err := dns.ResolveExchanges(ctx, e.resolver, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mail server for %s: %w", domain, err)
	}

	// Only the top-priority exchange is attempted; there is no fallback
	// iteration over the remaining records.
	exchange := hosts[0]
	addr := net.JoinHostPort(exchange, strconv.Itoa(e.port))

	e.log.Debug("delivering message",
		"to", req.To,
		"exchange", exchange,
	)

	dialCtx, cancel := context.WithTimeout(ctx, e.connectTimeout)
	defer cancel()

	conn, err := e.dialer(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), e.hostname)

	if err := e.transmit(conn, req, messageID); err != nil {
		return nil, fmt.Errorf("delivery to %s failed: %w", exchange, err)
	}

	e.log.Info("message delivered",
		"to", req.To,
		"exchange", exchange,
		"message_id", messageID,
	)

	return &Receipt{MessageID: messageID}, nil
}

// transmit runs the SMTP conversation on an open connection. The
// greeting is bounded separately from the per-command socket timeout.
func (e *Engine) transmit(conn net.Conn, req Request, messageID string) error {
	// The greeting deadline covers the banner read during EHLO.
	if err := conn.SetDeadline(time.Now().Add(e.greetingTimeout)); err != nil {
		return fmt.Errorf("failed to set greeting deadline: %w", err)
	}

	client := smtp.NewClient(conn)
	defer client.Close()
	client.CommandTimeout = e.socketTimeout
	client.SubmissionTimeout = e.socketTimeout

	if err := client.Hello(e.hostname); err != nil {
		return fmt.Errorf("greeting failed: %w", err)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return fmt.Errorf("failed to clear greeting deadline: %w", err)
	}

	// Opportunistic STARTTLS: exchanges offering encryption get it, but
	// certificate validation is disabled so self-signed exchanges still
	// receive mail.
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{InsecureSkipVerify: true}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if err := client.Mail(req.From, nil); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := client.Rcpt(req.To, nil); err != nil {
		return fmt.Errorf("RCPT TO rejected: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := wc.Write(buildMessage(req, messageID, time.Now())); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	return client.Quit()
}
