// Package vapid converts VAPID application server keys between the URL-safe
// Base64 form handed out by push backends and the raw bytes the push
// subscription API expects.
package vapid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultPublicKey is the application server key compiled into the client.
// Override at build time via -ldflags "-X github.com/naveenspark/pushenable/pkg/vapid.DefaultPublicKey=...".
var DefaultPublicKey = "BBCQIqZGOV52qqtx6NahpoKDj-H9gM6PxTeDvtqfwNCqxFUGqd3zYSQp2kM457CRoTk8XbjD_Y02kGeTh2I8DoE"

// DecodeError reports a key that could not be decoded.
type DecodeError struct {
	Input  string
	Offset int // -1 when the position is unknown
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("vapid: invalid key at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("vapid: invalid key: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var errAlphabet = errors.New("character outside base64 alphabet")

var urlToStd = strings.NewReplacer("-", "+", "_", "/")

// DecodeKey decodes an unpadded (or padded) URL-safe Base64 key into raw bytes.
// The empty string decodes to an empty buffer.
func DecodeKey(s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		if !inAlphabet(s[i]) {
			return nil, &DecodeError{Input: s, Offset: i, Err: errAlphabet}
		}
	}

	padded := s + strings.Repeat("=", (4-len(s)%4)%4)
	std := urlToStd.Replace(padded)

	out, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		offset := -1
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			offset = int(corrupt)
		}
		return nil, &DecodeError{Input: s, Offset: offset, Err: err}
	}
	return out, nil
}

// EncodeKey is the inverse of DecodeKey: unpadded URL-safe Base64.
func EncodeKey(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// EncodeStd encodes key material as padded standard Base64, the form a
// backend expects for the p256dh and auth values.
func EncodeStd(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// inAlphabet accepts both Base64 alphabets plus padding. Line breaks are
// rejected here because the standard decoder would silently skip them.
func inAlphabet(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '+', c == '/', c == '=':
		return true
	}
	return false
}
