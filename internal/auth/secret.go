package auth

import "crypto/subtle"

// SecureCompare reports whether got equals want without leaking timing
// information about where they differ. An empty want never matches.
func SecureCompare(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
