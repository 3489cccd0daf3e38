// Package contextfile decodes an uploaded file into the text used as
// conversation context. UTF-8 is expected; ISO-8859-1 is accepted as a
// fallback. Anything that looks binary is rejected.
package contextfile

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeError reports that uploaded bytes could not be decoded as text.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "context file decode failed: " + e.Reason
}

// Load decodes raw uploaded bytes to text. On error the caller must leave the
// current context blob untouched.
func Load(data []byte) (string, error) {
	// NUL bytes mark the file as binary regardless of encoding.
	if bytes.IndexByte(data, 0) >= 0 {
		return "", &DecodeError{Reason: "file contains binary data"}
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", &DecodeError{Reason: "not valid UTF-8 or ISO-8859-1 text"}
	}
	return string(text), nil
}
