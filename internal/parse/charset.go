package parse

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// wordDecoder handles RFC 2047 encoded-words in headers, with charset
// support beyond UTF-8 via x/text.
var wordDecoder = mime.WordDecoder{CharsetReader: charsetReader}

// decodeHeader decodes an encoded header value to plain text. If decoding
// fails the raw value is returned rather than losing the header entirely.
func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// charsetReader maps a MIME charset label to a decoding reader.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(strings.ToLower(charset))
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeCharset converts raw body bytes from the given charset to UTF-8.
// Decoding is lossy: on any failure the bytes are passed through as-is so
// a bad charset label never discards a message.
func decodeCharset(data []byte, charset string) string {
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "us-ascii") {
		return string(data)
	}
	enc, err := htmlindex.Get(strings.ToLower(charset))
	if err != nil {
		return string(data)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}
