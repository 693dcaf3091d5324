package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"net/mail"
	"time"
)

// Compose renders an RFC 5322 message with a single HTML part. Addresses
// are validated so header injection through from or to is rejected.
func Compose(from, to, subject, html string, date time.Time) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", from, err)
	}

	toAddr, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("invalid to address %q: %w", to, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", fromAddr.String())
	fmt.Fprintf(&buf, "To: %s\r\n", toAddr.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(html)
	buf.WriteString("\r\n")

	return buf.Bytes(), nil
}
