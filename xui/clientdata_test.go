package xui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildClientData(t *testing.T) {
	traffic := ClientTraffic{
		Email:      "100",
		Up:         1024,
		Down:       2048,
		Total:      10240,
		ExpiryTime: 1767222000000,
	}

	data := BuildClientData(traffic, 3)
	assert.Equal(t, 3, data.MaxDevices)
	assert.EqualValues(t, 10240, data.TrafficTotal)
	assert.EqualValues(t, 3072, data.TrafficUsed)
	assert.EqualValues(t, 10240-3072, data.TrafficRemaining)
	assert.EqualValues(t, 1767222000000, data.ExpiryTime)
}

func TestBuildClientDataUnlimited(t *testing.T) {
	// limitIp 0, total 0 and expiry 0 all mean "no cap" on the panel
	data := BuildClientData(ClientTraffic{}, 0)
	assert.EqualValues(t, Unlimited, data.MaxDevices)
	assert.EqualValues(t, Unlimited, data.TrafficTotal)
	assert.EqualValues(t, Unlimited, data.TrafficRemaining)
	assert.EqualValues(t, Unlimited, data.ExpiryTime)
}

func TestExpired(t *testing.T) {
	now := time.Now()

	past := BuildClientData(ClientTraffic{ExpiryTime: now.Add(-time.Hour).UnixMilli()}, 1)
	assert.True(t, past.Expired(now))

	future := BuildClientData(ClientTraffic{ExpiryTime: now.Add(time.Hour).UnixMilli()}, 1)
	assert.False(t, future.Expired(now))

	never := BuildClientData(ClientTraffic{}, 1)
	assert.False(t, never.Expired(now))
}

func TestAddDays(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got := AddDays(base.UnixMilli(), 30)
	assert.Equal(t, base.AddDate(0, 0, 30).UnixMilli(), got)
}
