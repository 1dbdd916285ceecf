package parse

import (
	"encoding/base64"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
)

// maxMultipartDepth bounds recursion into nested multipart containers.
const maxMultipartDepth = 8

// extractBody pulls the plain-text body out of a parsed message.
// Plain-text parts are preferred; HTML is converted only when no plain
// part exists. Decoding is best-effort throughout: a part that cannot be
// decoded cleanly contributes whatever bytes were recovered instead of
// failing the whole message.
func extractBody(msg *mail.Message, log *slog.Logger) string {
	mediaType, params := partMediaType(msg.Header.Get("Content-Type"))

	var plain, html []string
	if strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		mr := multipart.NewReader(msg.Body, params["boundary"])
		collectParts(mr, &plain, &html, log, 0)
	} else {
		text := decodePartBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if mediaType == "text/html" {
			html = append(html, text)
		} else {
			plain = append(plain, text)
		}
	}

	if len(plain) > 0 {
		return strings.TrimSpace(strings.Join(plain, "\n"))
	}
	if len(html) > 0 {
		log.Debug("normalizer: no text/plain part, converting text/html")
		return htmlToText(strings.Join(html, "\n"), log)
	}
	return ""
}

// collectParts walks one multipart container, gathering text parts and
// recursing into nested multiparts.
func collectParts(mr *multipart.Reader, plain, html *[]string, log *slog.Logger, depth int) {
	if depth >= maxMultipartDepth {
		log.Warn("normalizer: multipart nesting too deep, truncating walk")
		return
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Warn("normalizer: reading multipart", "error", err)
			return
		}

		if disp := part.Header.Get("Content-Disposition"); strings.Contains(strings.ToLower(disp), "attachment") {
			continue
		}

		mediaType, params := partMediaType(part.Header.Get("Content-Type"))
		switch {
		case strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "":
			collectParts(multipart.NewReader(part, params["boundary"]), plain, html, log, depth+1)
		case mediaType == "text/plain":
			*plain = append(*plain, decodePart(part, params["charset"]))
		case mediaType == "text/html":
			*html = append(*html, decodePart(part, params["charset"]))
		}
	}
}

func decodePart(part *multipart.Part, charset string) string {
	return decodePartBody(part, partEncoding(part.Header), charset)
}

// decodePartBody reverses the transfer encoding and charset of one body
// part. Read errors yield whatever prefix was decoded successfully.
func decodePartBody(r io.Reader, transferEncoding, charset string) string {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	data, _ := io.ReadAll(r) // lossy on purpose
	return decodeCharset(data, charset)
}

// partMediaType parses a Content-Type header, defaulting to text/plain
// when the header is absent or malformed.
func partMediaType(contentType string) (string, map[string]string) {
	if contentType == "" {
		return "text/plain", nil
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "text/plain", nil
	}
	return strings.ToLower(mediaType), params
}

func partEncoding(h textproto.MIMEHeader) string {
	return h.Get("Content-Transfer-Encoding")
}
