package common

import "strings"

// UsernameFromEmail returns the local part of an e-mail address. Input
// without an "@" is returned unchanged.
func UsernameFromEmail(email string) string {
	return strings.Split(strings.TrimSpace(email), "@")[0]
}

// WipeByteArray zeroes b in place. Used on password buffers read from the
// terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
