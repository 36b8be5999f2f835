package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timbercraft/orchestrator/internal/auth"
)

func TestSecureCompare(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
		ok   bool
	}{
		{"match", "s3cret", "s3cret", true},
		{"mismatch", "s3cret", "other", false},
		{"different length", "s3", "s3cret", false},
		{"empty got", "", "s3cret", false},
		{"empty want never matches", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, auth.SecureCompare(tt.got, tt.want))
		})
	}
}
