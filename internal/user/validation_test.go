package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSignupRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     SignupRequest
		wantErr string
	}{
		{"valid", SignupRequest{"alice", "alice@example.com", "Passw0rd!"}, ""},
		{"missing username", SignupRequest{"", "alice@example.com", "Passw0rd!"}, "username is required"},
		{"short username", SignupRequest{"a", "alice@example.com", "Passw0rd!"}, "at least 2"},
		{"long username", SignupRequest{"abcdefghijklmnopqrstuvwxyz0123", "a@example.com", "Passw0rd!"}, "no more than 28"},
		{"cyrillic counts runes", SignupRequest{"Ян", "yan@example.com", "Passw0rd!"}, ""},
		{"missing email", SignupRequest{"alice", "", "Passw0rd!"}, "email is required"},
		{"email without at", SignupRequest{"alice", "alice.example.com", "Passw0rd!"}, "invalid email"},
		{"email without dot", SignupRequest{"alice", "alice@example", "Passw0rd!"}, "invalid email"},
		{"short password", SignupRequest{"alice", "alice@example.com", "Pa0!"}, "at least 8"},
		{"no upper", SignupRequest{"alice", "alice@example.com", "passw0rd!"}, "uppercase"},
		{"no digit", SignupRequest{"alice", "alice@example.com", "Password!"}, "number"},
		{"no special", SignupRequest{"alice", "alice@example.com", "Passw0rdd"}, "special"},
		{"long password", SignupRequest{"alice", "alice@example.com", "Passw0rd!" + strings.Repeat("x", 64)}, "no more than 72"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSignupRequest(&tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateUpdateProfileRequest(t *testing.T) {
	name := "bob"
	badEmail := "nope"

	assert.ErrorContains(t, validateUpdateProfileRequest(&UpdateProfileRequest{}), "nothing to update")
	assert.NoError(t, validateUpdateProfileRequest(&UpdateProfileRequest{Username: &name}))
	assert.ErrorContains(t, validateUpdateProfileRequest(&UpdateProfileRequest{Email: &badEmail}), "invalid email")
}
