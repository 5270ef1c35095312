package auth

import (
	"strings"
	"testing"

	domainerrors "guardian/internal/domain/errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := NewPasswordPolicy(6, 72)

	testCases := []struct {
		name        string
		password    string
		expectedErr string
	}{
		{name: "empty", password: "", expectedErr: "must not be empty"},
		{name: "too short", password: "12345", expectedErr: "must be at least 6 characters long"},
		{name: "too long", password: strings.Repeat("x", 73), expectedErr: "must be at most 72 bytes long"},
		{name: "multibyte over byte limit", password: strings.Repeat("ä", 40), expectedErr: "must be at most 72 bytes long"},
		{name: "minimum length", password: "123456"},
		{name: "maximum length", password: strings.Repeat("x", 72)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Validate(tc.password)
			if tc.expectedErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrInvalidPassword))
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func TestPasswordPolicy_Defaults(t *testing.T) {
	policy, ok := NewPasswordPolicy(0, 500).(*passwordPolicy)
	require.True(t, ok)

	assert.Equal(t, DefaultMinPasswordLength, policy.min)
	assert.Equal(t, MaxBcryptPasswordLength, policy.max)
}

func TestPasswordPolicy_MinimumLengthFloor(t *testing.T) {
	policy, ok := NewPasswordPolicy(1, 4).(*passwordPolicy)
	require.True(t, ok)

	assert.Equal(t, DefaultMinPasswordLength, policy.min)
	assert.Equal(t, DefaultMinPasswordLength, policy.max)
	assert.Error(t, policy.Validate("12345"))
	assert.NoError(t, policy.Validate("123456"))
}
