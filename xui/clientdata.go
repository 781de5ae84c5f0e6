package xui

import (
	"time"
)

// Unlimited marks quota fields without a cap.
const Unlimited = -1

// ClientData is the subscription view shown to users: device cap, traffic
// counters and expiry. Unlimited quotas are normalized to -1.
type ClientData struct {
	MaxDevices       int   `json:"max_devices"`
	TrafficTotal     int64 `json:"traffic_total"`
	TrafficRemaining int64 `json:"traffic_remaining"`
	TrafficUsed      int64 `json:"traffic_used"`
	TrafficUp        int64 `json:"traffic_up"`
	TrafficDown      int64 `json:"traffic_down"`
	ExpiryTime       int64 `json:"expiry_time"` // unix ms, -1 = never
}

// BuildClientData merges traffic counters with the inbound device limit.
// A limit of 0 on the panel means no device cap; total <= 0 means no
// traffic cap; expiry 0 means the client never expires.
func BuildClientData(t ClientTraffic, limitIP int) ClientData {
	maxDevices := limitIP
	if limitIP == 0 {
		maxDevices = Unlimited
	}

	total := t.Total
	remaining := total - (t.Up + t.Down)
	if total <= 0 {
		total = Unlimited
		remaining = Unlimited
	}

	expiry := t.ExpiryTime
	if expiry == 0 {
		expiry = Unlimited
	}

	return ClientData{
		MaxDevices:       maxDevices,
		TrafficTotal:     total,
		TrafficRemaining: remaining,
		TrafficUsed:      t.Up + t.Down,
		TrafficUp:        t.Up,
		TrafficDown:      t.Down,
		ExpiryTime:       expiry,
	}
}

// Expired reports whether the subscription has lapsed. Never-expiring
// clients are never expired.
func (d ClientData) Expired(now time.Time) bool {
	if d.ExpiryTime == Unlimited {
		return false
	}

	return d.ExpiryTime <= now.UnixMilli()
}

// CurrentTimestamp is the panel's clock unit: unix milliseconds.
func CurrentTimestamp() int64 {
	return time.Now().UnixMilli()
}

func AddDays(timestamp int64, days int) int64 {
	t := time.UnixMilli(timestamp)
	return t.AddDate(0, 0, days).UnixMilli()
}

func DaysToTimestamp(days int) int64 {
	return AddDays(CurrentTimestamp(), days)
}
