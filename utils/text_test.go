package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGreeting(t *testing.T) {
	assert.True(t, IsGreeting("hi"))
	assert.True(t, IsGreeting("Hello!"))
	assert.True(t, IsGreeting("  namaste  "))
	assert.False(t, IsGreeting("hi, can you send the price list"))
	assert.False(t, IsGreeting("yes"))
}

func TestDevanagariRatio(t *testing.T) {
	assert.Equal(t, 0.0, DevanagariRatio("hello world"))
	assert.Equal(t, 1.0, DevanagariRatio("नमस्ते"))
	assert.Equal(t, 0.0, DevanagariRatio("123 !?"))
}

func TestIsHindiText(t *testing.T) {
	assert.True(t, IsHindiText("धन्यवाद, कल बात करते हैं"))
	assert.False(t, IsHindiText("thanks, talk tomorrow"))
	assert.False(t, IsHindiText("ok धन्यवाद but mostly english words here today"))
}

func TestPersonalizeMessage(t *testing.T) {
	t.Run("SubstitutesValues", func(t *testing.T) {
		got := PersonalizeMessage("Hi {{name}} from {{company}}", map[string]string{
			"name":    "Asha",
			"company": "Verma Industries",
		})
		assert.Equal(t, "Hi Asha from Verma Industries", got)
	})

	t.Run("FallsBackToDefaults", func(t *testing.T) {
		got := PersonalizeMessage("Hi {{name}} from {{company}}", map[string]string{})
		assert.Equal(t, "Hi there from your company", got)
	})

	t.Run("BlankValueUsesDefault", func(t *testing.T) {
		got := PersonalizeMessage("Hi {{name}}", map[string]string{"name": "  "})
		assert.Equal(t, "Hi there", got)
	})

	t.Run("UnknownPlaceholderUntouched", func(t *testing.T) {
		got := PersonalizeMessage("Slot {{slot}}", map[string]string{})
		assert.Equal(t, "Slot {{slot}}", got)
	})
}
