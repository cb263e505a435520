package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims", input: "  Acme  ", want: "Acme"},
		{name: "escapes html", input: "<b>bold</b>", want: "&lt;b&gt;bold&lt;/b&gt;"},
		{name: "drops script", input: "hi<script>alert(1)</script>", want: "hi"},
		{name: "drops control chars", input: "a\x00b\tc", want: "abc"},
		{name: "keeps newlines", input: "line1\nline2", want: "line1\nline2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeInput(tt.input))
		})
	}
}

func TestSanitizeEmail(t *testing.T) {
	email, err := SanitizeEmail("  Owner@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", email)

	_, err = SanitizeEmail("not-an-email")
	assert.Error(t, err)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "9876543210", NormalizePhone("98765 43210", "+91"))
	assert.Equal(t, "9876543210", NormalizePhone("+91 98765-43210", "+91"))
	assert.Equal(t, "12345", NormalizePhone("12345", "+91"))
}

func TestIsValidPhone10(t *testing.T) {
	assert.True(t, IsValidPhone10("9876543210"))
	assert.False(t, IsValidPhone10("987654321"))
	assert.False(t, IsValidPhone10("98765432101"))
	assert.False(t, IsValidPhone10("98765x3210"))
}

func TestIsValidOTPCode(t *testing.T) {
	assert.True(t, IsValidOTPCode("123456"))
	assert.False(t, IsValidOTPCode("12345"))
	assert.False(t, IsValidOTPCode("1234567"))
	assert.False(t, IsValidOTPCode("12345a"))
}

func TestIsValidUPIID(t *testing.T) {
	assert.True(t, IsValidUPIID("joes.cafe@okhdfc"))
	assert.False(t, IsValidUPIID("joescafe"))
	assert.False(t, IsValidUPIID("@okhdfc"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "******3210", MaskPhone("9876543210"))
	assert.Equal(t, "321", MaskPhone("321"))
}

func TestGenerateSecureOTP(t *testing.T) {
	code, err := GenerateSecureOTP()
	require.NoError(t, err)
	assert.True(t, IsValidOTPCode(code))
}

func TestToE164(t *testing.T) {
	assert.Equal(t, "+919876543210", ToE164("9876543210", "+91"))
	assert.Equal(t, "+919876543210", ToE164("9876543210", "91"))
}
