package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackUnpackSubscriptionData(t *testing.T) {
	data := SubscriptionData{
		State:      "duration",
		Extend:     true,
		TelegramID: 123456789,
		MessageID:  42,
		Devices:    3,
		Duration:   90,
		Price:      800,
	}

	packed := data.Pack()
	assert.True(t, IsSubscriptionData(packed))

	// Telegram rejects callback data over 64 bytes
	assert.LessOrEqual(t, len(packed), 64)

	unpacked, err := UnpackSubscriptionData(packed)
	assert.NoError(t, err)
	assert.Equal(t, data, unpacked)
}

func TestUnpackSubscriptionDataInvalid(t *testing.T) {
	cases := []string{
		"",
		"main_menu",
		"subscription:devices",
		"subscription:pay:0:abc:0:0:0:0",
		"other:pay:0:1:2:3:4:5",
	}

	for _, packed := range cases {
		_, err := UnpackSubscriptionData(packed)
		assert.ErrorIs(t, err, ErrInvalidSubscriptionData, packed)
	}
}

func TestIsSubscriptionData(t *testing.T) {
	assert.True(t, IsSubscriptionData("subscription:devices:0:1:2:3:4:5"))
	assert.False(t, IsSubscriptionData("subscription"))
	assert.False(t, IsSubscriptionData("main_menu"))
}
