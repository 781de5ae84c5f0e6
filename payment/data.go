package payment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidSubscriptionData = errors.New("invalid subscription data")

const subscriptionPrefix = "subscription"

// SubscriptionData is the purchase selection carried through the bot's
// callback buttons and stored on the transaction. It packs to a compact
// colon-joined string because Telegram limits callback data to 64 bytes.
type SubscriptionData struct {
	State      string
	Extend     bool
	TelegramID int64
	MessageID  int
	Devices    int
	Duration   int
	Price      float64
}

func (d SubscriptionData) Pack() string {
	extend := "0"
	if d.Extend {
		extend = "1"
	}

	return strings.Join([]string{
		subscriptionPrefix,
		d.State,
		extend,
		strconv.FormatInt(d.TelegramID, 10),
		strconv.Itoa(d.MessageID),
		strconv.Itoa(d.Devices),
		strconv.Itoa(d.Duration),
		strconv.FormatFloat(d.Price, 'f', -1, 64),
	}, ":")
}

func UnpackSubscriptionData(packed string) (SubscriptionData, error) {
	ss := strings.Split(packed, ":")
	if len(ss) != 8 || ss[0] != subscriptionPrefix {
		return SubscriptionData{}, ErrInvalidSubscriptionData
	}

	telegramID, err := strconv.ParseInt(ss[3], 10, 64)
	if err != nil {
		return SubscriptionData{}, fmt.Errorf("%w: %v", ErrInvalidSubscriptionData, err)
	}

	messageID, err := strconv.Atoi(ss[4])
	if err != nil {
		return SubscriptionData{}, fmt.Errorf("%w: %v", ErrInvalidSubscriptionData, err)
	}

	devices, err := strconv.Atoi(ss[5])
	if err != nil {
		return SubscriptionData{}, fmt.Errorf("%w: %v", ErrInvalidSubscriptionData, err)
	}

	duration, err := strconv.Atoi(ss[6])
	if err != nil {
		return SubscriptionData{}, fmt.Errorf("%w: %v", ErrInvalidSubscriptionData, err)
	}

	price, err := strconv.ParseFloat(ss[7], 64)
	if err != nil {
		return SubscriptionData{}, fmt.Errorf("%w: %v", ErrInvalidSubscriptionData, err)
	}

	return SubscriptionData{
		State:      ss[1],
		Extend:     ss[2] == "1",
		TelegramID: telegramID,
		MessageID:  messageID,
		Devices:    devices,
		Duration:   duration,
		Price:      price,
	}, nil
}

// IsSubscriptionData reports whether a callback payload belongs to the
// purchase flow.
func IsSubscriptionData(packed string) bool {
	return strings.HasPrefix(packed, subscriptionPrefix+":")
}
