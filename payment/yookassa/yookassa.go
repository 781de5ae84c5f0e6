// Package yookassa implements the YooKassa card gateway against its REST
// API. There is no official Go SDK; the surface used here is small enough
// that a plain HTTP client is the safer bet.
package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/miravpn/shop/payment"
)

const DefaultAPIURL = "https://api.yookassa.ru/v3"

var (
	ErrPaymentRejected     = errors.New("payment rejected")
	ErrInvalidNotification = errors.New("invalid notification")
)

type Event int

const (
	PaymentSucceeded Event = iota
	PaymentCanceled
	UnknownNotification Event = -1
)

type Gateway struct {
	shopID   string
	secret   string
	email    string // receipt customer
	returnTo string
	apiURL   string
	client   *http.Client
	trusted  []*net.IPNet
}

type Option func(*Gateway)

// WithAPIURL points the gateway at a different API base. Tests use this.
func WithAPIURL(url string) Option {
	return func(gw *Gateway) {
		gw.apiURL = url
	}
}

// WithTrustedNets overrides the published YooKassa source ranges.
func WithTrustedNets(cidrs []string) Option {
	return func(gw *Gateway) {
		nets := make([]*net.IPNet, 0, len(cidrs))
		for _, cidr := range cidrs {
			_, n, err := net.ParseCIDR(cidr)
			if err != nil {
				continue
			}
			nets = append(nets, n)
		}
		gw.trusted = nets
	}
}

// Notification source ranges published by YooKassa.
var defaultTrustedCIDRs = []string{
	"185.71.76.0/27",
	"185.71.77.0/27",
	"77.75.153.0/25",
	"77.75.156.11/32",
	"77.75.156.35/32",
	"77.75.154.128/25",
	"2a02:5180::/32",
}

func NewGateway(shopID string, secret string, email string, returnTo string, opts ...Option) *Gateway {
	gw := &Gateway{
		shopID:   shopID,
		secret:   secret,
		email:    email,
		returnTo: returnTo,
		apiURL:   DefaultAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	WithTrustedNets(defaultTrustedCIDRs)(gw)

	for _, opt := range opts {
		opt(gw)
	}

	return gw
}

func (gw *Gateway) Name() string {
	return "yookassa"
}

func (gw *Gateway) Currency() string {
	return "RUB"
}

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type paymentRequest struct {
	Amount       amount `json:"amount"`
	Capture      bool   `json:"capture"`
	Description  string `json:"description"`
	Confirmation struct {
		Type      string `json:"type"`
		ReturnURL string `json:"return_url"`
	} `json:"confirmation"`
	Receipt struct {
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
		Items []receiptItem `json:"items"`
	} `json:"receipt"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type receiptItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Amount      amount `json:"amount"`
	VATCode     int    `json:"vat_code"`
}

func (gw *Gateway) CreatePayment(ctx context.Context, inv payment.Invoice) (*payment.Payment, error) {
	value := fmt.Sprintf("%.2f", inv.Price)

	var req paymentRequest
	req.Amount = amount{Value: value, Currency: gw.Currency()}
	req.Capture = true
	req.Description = inv.Description
	req.Confirmation.Type = "redirect"
	req.Confirmation.ReturnURL = gw.returnTo
	req.Receipt.Customer.Email = gw.email
	req.Receipt.Items = []receiptItem{{
		Description: inv.Description,
		Quantity:    "1",
		Amount:      amount{Value: value, Currency: gw.Currency()},
		VATCode:     1,
	}}
	req.Metadata = map[string]string{
		"payload": inv.Payload,
	}

	body, err := json.Marshal(&req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx,
		http.MethodPost, gw.apiURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.SetBasicAuth(gw.shopID, gw.secret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", uuid.NewString())

	resp, err := gw.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		desc := gjson.GetBytes(data, "description").String()
		return nil, fmt.Errorf("%w: %s (%d)", ErrPaymentRejected, desc, resp.StatusCode)
	}

	id := gjson.GetBytes(data, "id").String()
	url := gjson.GetBytes(data, "confirmation.confirmation_url").String()
	if id == "" || url == "" {
		return nil, ErrPaymentRejected
	}

	return &payment.Payment{ID: id, URL: url}, nil
}

// TrustedIP reports whether a webhook source address belongs to YooKassa.
func (gw *Gateway) TrustedIP(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}

	for _, n := range gw.trusted {
		if n.Contains(ip) {
			return true
		}
	}

	return false
}

// ParseNotification extracts the event and payment id from a webhook body.
func ParseNotification(body []byte) (Event, string, error) {
	if !gjson.ValidBytes(body) {
		return UnknownNotification, "", ErrInvalidNotification
	}

	paymentID := gjson.GetBytes(body, "object.id").String()
	if paymentID == "" {
		return UnknownNotification, "", ErrInvalidNotification
	}

	switch gjson.GetBytes(body, "event").String() {
	case "payment.succeeded":
		return PaymentSucceeded, paymentID, nil
	case "payment.canceled":
		return PaymentCanceled, paymentID, nil
	default:
		return UnknownNotification, paymentID, ErrInvalidNotification
	}
}
