package parse

import (
	"errors"
	"strings"
	"testing"

	"github.com/oncallops/mailtriage/internal/mailbox"
)

func normalize(t *testing.T, agentAddr, raw string) (*incidentResult, error) {
	t.Helper()
	n := NewNormalizer(agentAddr, nil)
	inc, err := n.Normalize(mailbox.RawMessage{DeliveryID: "42", Data: []byte(raw)})
	if err != nil {
		return nil, err
	}
	return &incidentResult{inc.ID, inc.Subject, inc.Body, inc.RawContent}, nil
}

type incidentResult struct {
	ID, Subject, Body, Raw string
}

func TestNormalizePlainMessage(t *testing.T) {
	raw := "From: Alice <alice@example.com>\r\n" +
		"To: ops@example.com\r\n" +
		"Subject: Server down\r\n" +
		"Message-ID: <abc123@example.com>\r\n" +
		"\r\n" +
		"the web server is not responding\r\n"

	got, err := normalize(t, "agent@example.com", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "abc123@example.com" {
		t.Fatalf("expected Message-ID trimmed of angle brackets, got %q", got.ID)
	}
	if got.Subject != "Server down" {
		t.Fatalf("unexpected subject %q", got.Subject)
	}
	if !strings.Contains(got.Body, "not responding") {
		t.Fatalf("unexpected body %q", got.Body)
	}
	if got.Raw != raw {
		t.Fatal("raw content must keep the original payload verbatim")
	}
}

func TestNormalizeFallsBackToDeliveryID(t *testing.T) {
	raw := "From: alice@example.com\r\nSubject: no message id\r\n\r\nbody\r\n"
	got, err := normalize(t, "", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "imap-uid-42" {
		t.Fatalf("expected synthesised id imap-uid-42, got %q", got.ID)
	}
}

func TestNormalizeDecodesEncodedSubject(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: =?utf-8?q?Caf=C3=A9_outage?=\r\n" +
		"Message-ID: <m@example.com>\r\n\r\nbody\r\n"
	got, err := normalize(t, "", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Subject != "Café outage" {
		t.Fatalf("expected decoded subject, got %q", got.Subject)
	}
}

func TestNormalizeDefaultsEmptySubject(t *testing.T) {
	raw := "From: alice@example.com\r\nMessage-ID: <m@example.com>\r\n\r\nbody\r\n"
	got, err := normalize(t, "", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Subject != "(No Subject)" {
		t.Fatalf("expected placeholder subject, got %q", got.Subject)
	}
}

func TestNormalizePrefersPlainTextOverHTML(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: mixed\r\n" +
		"Message-ID: <m@example.com>\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"BOUND\"\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain body here\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html body here</p>\r\n" +
		"--BOUND--\r\n"

	got, err := normalize(t, "", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got.Body, "plain body here") {
		t.Fatalf("expected plain part, got %q", got.Body)
	}
	if strings.Contains(got.Body, "html body here") {
		t.Fatalf("html part should be ignored when plain exists, got %q", got.Body)
	}
}

func TestNormalizeStripsHTMLWhenOnlyHTMLExists(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: html only\r\n" +
		"Message-ID: <m@example.com>\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><style>p { color: red }</style><script>alert(1)</script>" +
		"<p>Database   is <b>down</b></p></html>\r\n"

	got, err := normalize(t, "", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got.Body, "<") || strings.Contains(got.Body, ">") {
		t.Fatalf("tags not stripped: %q", got.Body)
	}
	if strings.Contains(got.Body, "color: red") || strings.Contains(got.Body, "alert(1)") {
		t.Fatalf("style/script content leaked into body: %q", got.Body)
	}
	if !strings.Contains(got.Body, "Database is down") {
		t.Fatalf("expected collapsed text body, got %q", got.Body)
	}
}

func TestNormalizeDecodesBase64Body(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: encoded\r\n" +
		"Message-ID: <m@example.com>\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"aGVsbG8gYmFzZTY0\r\n" // "hello base64"

	got, err := normalize(t, "", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got.Body, "hello base64") {
		t.Fatalf("expected decoded body, got %q", got.Body)
	}
}

func TestNormalizeRejectsAutoReplies(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{
			"out of office subject",
			"From: bob@example.com\r\nSubject: Automatic Reply: Out of Office\r\n\r\nback next week\r\n",
		},
		{
			"undeliverable subject",
			"From: mailer-daemon@example.com\r\nSubject: Undeliverable: incident report\r\n\r\nbounce\r\n",
		},
		{
			"suppress-all header",
			"From: bob@example.com\r\nSubject: real looking\r\nX-Auto-Response-Suppress: OOF, All\r\n\r\nbody\r\n",
		},
		{
			"auto-submitted header",
			"From: bob@example.com\r\nSubject: cron output\r\nAuto-Submitted: auto-generated\r\n\r\nbody\r\n",
		},
		{
			"self-sent loop",
			"From: Agent <AGENT@example.com>\r\nSubject: RE: something [Incident ACK - ID: x]\r\n\r\nbody\r\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalize(t, "agent@example.com", tc.raw)
			var rej *RejectedError
			if !errors.As(err, &rej) {
				t.Fatalf("expected RejectedError, got %v", err)
			}
		})
	}
}

func TestNormalizeAcceptsAutoSubmittedNo(t *testing.T) {
	raw := "From: bob@example.com\r\nSubject: genuine report\r\nAuto-Submitted: no\r\nMessage-ID: <m@example.com>\r\n\r\nbody\r\n"
	if _, err := normalize(t, "agent@example.com", raw); err != nil {
		t.Fatalf("Auto-Submitted: no must not be rejected, got %v", err)
	}
}
