package deliver

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"
)

// bridgeHeader identifies messages originated by this bridge.
const bridgeHeader = "X-Mailer"

// bridgeName is the value of the identifying header.
const bridgeName = "mail-bridge"

// buildMessage constructs the raw RFC 5322 message for one delivery as
// multipart/alternative. The HTML body defaults to the text body so
// recipients always get both forms.
func buildMessage(req Request, messageID string, now time.Time) []byte {
	var buf bytes.Buffer

	htmlBody := req.HTMLBody
	if htmlBody == "" {
		htmlBody = req.TextBody
	}

	fmt.Fprintf(&buf, "From: %s\r\n", req.From)
	fmt.Fprintf(&buf, "To: %s\r\n", req.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", req.Subject))
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "%s: %s\r\n", bridgeHeader, bridgeName)
	if v := joinMsgIDs(req.InReplyTo); v != "" {
		fmt.Fprintf(&buf, "In-Reply-To: %s\r\n", v)
	}
	if v := joinMsgIDs(req.References); v != "" {
		fmt.Fprintf(&buf, "References: %s\r\n", v)
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", writer.Boundary())

	textHeader := make(textproto.MIMEHeader)
	textHeader.Set("Content-Type", "text/plain; charset=UTF-8")
	part, _ := writer.CreatePart(textHeader)
	part.Write([]byte(req.TextBody))

	htmlHeader := make(textproto.MIMEHeader)
	htmlHeader.Set("Content-Type", "text/html; charset=UTF-8")
	part, _ = writer.CreatePart(htmlHeader)
	part.Write([]byte(htmlBody))

	writer.Close()
	return buf.Bytes()
}

// joinMsgIDs renders a threading header value, bracketing bare
// identifiers so clients always see well-formed msg-id tokens.
func joinMsgIDs(ids []string) string {
	bracketed := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !strings.HasPrefix(id, "<") {
			id = "<" + id + ">"
		}
		bracketed = append(bracketed, id)
	}
	return strings.Join(bracketed, " ")
}
