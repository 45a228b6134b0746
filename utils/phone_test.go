package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "919876543210", DigitsOnly("+91 98765-43210"))
	assert.Equal(t, "", DigitsOnly("no digits here"))
	assert.Equal(t, "12345", DigitsOnly("1a2b3c4d5"))
}

func TestStripJID(t *testing.T) {
	t.Run("MaskedIdentifier", func(t *testing.T) {
		id, masked := StripJID("123456789@lid")
		assert.True(t, masked)
		assert.Equal(t, "123456789", id)
	})

	t.Run("UserIdentifier", func(t *testing.T) {
		id, masked := StripJID("919876543210@s.whatsapp.net")
		assert.False(t, masked)
		assert.Equal(t, "919876543210", id)
	})

	t.Run("LegacyIdentifier", func(t *testing.T) {
		id, masked := StripJID("919876543210@c.us")
		assert.False(t, masked)
		assert.Equal(t, "919876543210", id)
	})

	t.Run("BarePhone", func(t *testing.T) {
		id, masked := StripJID("919876543210")
		assert.False(t, masked)
		assert.Equal(t, "919876543210", id)
	})
}

func TestIsUnroutableIdentifier(t *testing.T) {
	assert.True(t, IsUnroutableIdentifier("123456789@lid"))
	assert.True(t, IsUnroutableIdentifier("12345-67890@g.us"))
	assert.True(t, IsUnroutableIdentifier("status@broadcast"))
	assert.True(t, IsUnroutableIdentifier("12345@newsletter"))
	assert.False(t, IsUnroutableIdentifier("919876543210@s.whatsapp.net"))
	assert.False(t, IsUnroutableIdentifier("919876543210"))
}

func TestSanitizePhone(t *testing.T) {
	t.Run("StripsCountryCode", func(t *testing.T) {
		assert.Equal(t, "9876543210", SanitizePhone("+91 98765 43210", "91"))
	})

	t.Run("KeepsShortNumber", func(t *testing.T) {
		// "91" prefix but only 8 more digits; not cc + 10, so kept as is
		assert.Equal(t, "9187654321", SanitizePhone("91-8765-4321", "91"))
	})

	t.Run("NoCountryCode", func(t *testing.T) {
		assert.Equal(t, "9876543210", SanitizePhone("98765 43210", ""))
	})
}

func TestNormalizeE164(t *testing.T) {
	assert.Equal(t, "+919876543210", NormalizeE164("9876543210", "91"))
	assert.Equal(t, "+919876543210", NormalizeE164("09876543210", "91"))
	assert.Equal(t, "+919876543210", NormalizeE164("+91 98765 43210", "91"))
	assert.Equal(t, "+14155551234", NormalizeE164("14155551234", "91"))
	assert.Equal(t, "", NormalizeE164("", "91"))
}

func TestLastNDigits(t *testing.T) {
	assert.Equal(t, "65432108", LastNDigits("+91 98765-43210 8", 8))
	assert.Equal(t, "1234", LastNDigits("1234", 8))
}

func TestIsValidPhoneDigits(t *testing.T) {
	assert.True(t, IsValidPhoneDigits("9876543"))
	assert.True(t, IsValidPhoneDigits("+91 98765 43210"))
	assert.False(t, IsValidPhoneDigits("123456"))
	assert.False(t, IsValidPhoneDigits("1234567890123456"))
}

func TestIsValidLocalMobile(t *testing.T) {
	assert.True(t, IsValidLocalMobile("9876543210"))
	assert.True(t, IsValidLocalMobile("6000000000"))
	assert.False(t, IsValidLocalMobile("5876543210"))
	assert.False(t, IsValidLocalMobile("987654321"))
	assert.False(t, IsValidLocalMobile("98765432100"))
}
