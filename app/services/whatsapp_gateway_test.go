package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRecipient(t *testing.T) {
	t.Run("ValidDigits", func(t *testing.T) {
		assert.NoError(t, validateRecipient("919876543210"))
	})

	t.Run("MaskedIdentifierBlocked", func(t *testing.T) {
		err := validateRecipient("123456789@lid")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not routable")
	})

	t.Run("GroupIdentifierBlocked", func(t *testing.T) {
		err := validateRecipient("120363041234567890@g.us")
		require.Error(t, err)
	})

	t.Run("TooShort", func(t *testing.T) {
		err := validateRecipient("12345")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid phone number")
	})

	t.Run("TooLong", func(t *testing.T) {
		assert.Error(t, validateRecipient("1234567890123456"))
	})
}

func TestMockGatewaySendText(t *testing.T) {
	gateway := NewMockWhatsAppGateway()
	ctx := context.Background()

	result, err := gateway.SendText(ctx, "919876543210", "hello")
	require.NoError(t, err)
	assert.Equal(t, "mock-1", result.ExternalMessageID)
	assert.Equal(t, "sent", result.Status)
	require.Len(t, gateway.SentMessages, 1)
	assert.Equal(t, "919876543210", gateway.SentMessages[0].Recipient)
	assert.Equal(t, "hello", gateway.SentMessages[0].Body)
}

func TestMockGatewayBlocksBeforeRecording(t *testing.T) {
	gateway := NewMockWhatsAppGateway()

	result, err := gateway.SendText(context.Background(), "4567@lid", "hello")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "blocked", result.Status)
	assert.Empty(t, gateway.SentMessages)
}

func TestMockGatewayFailNextIsOneShot(t *testing.T) {
	gateway := NewMockWhatsAppGateway()
	ctx := context.Background()

	gateway.FailNext = true
	_, err := gateway.SendText(ctx, "919876543210", "first")
	require.Error(t, err)
	assert.Empty(t, gateway.SentMessages)

	result, err := gateway.SendText(ctx, "919876543210", "second")
	require.NoError(t, err)
	assert.Equal(t, "sent", result.Status)
	assert.Len(t, gateway.SentMessages, 1)
}

func TestMockGatewaySendImage(t *testing.T) {
	gateway := NewMockWhatsAppGateway()

	result, err := gateway.SendImage(context.Background(), "919876543210", "lead card", "https://cdn.example.com/card.jpg")
	require.NoError(t, err)
	assert.Equal(t, "sent", result.Status)
	require.Len(t, gateway.SentMessages, 1)
	assert.Equal(t, "https://cdn.example.com/card.jpg", gateway.SentMessages[0].MediaURL)
}
