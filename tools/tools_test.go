package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("I feel sad today")

	assert.Len(t, a, 16)
	assert.Equal(t, a, Fingerprint("I feel sad today"))
	assert.NotEqual(t, a, Fingerprint("I feel sad today!"))
	assert.True(t, strings.HasPrefix(EncryptTextSHA512("I feel sad today"), a))
}

func TestValidateUserID(t *testing.T) {
	for _, id := range []string{"42", "user-1", "3f0c8e1a-7b1e-4c1b-9a55-2f7f0f1b9d11", "ana@example.com"} {
		assert.True(t, ValidateUserID(id), id)
	}
	for _, id := range []string{"", "has space", "semi;colon", strings.Repeat("a", 65)} {
		assert.False(t, ValidateUserID(id), id)
	}
}
