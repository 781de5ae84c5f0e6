// Package xui is a client for the 3x-ui panel API. The panel speaks JSON
// with one quirk: inbound client settings are a JSON document embedded as a
// string field, which is why responses are queried with gjson instead of
// decoded into structs wholesale.
package xui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ErrLoginFailed    = errors.New("panel login failed")
	ErrClientNotFound = errors.New("client not found")
	ErrPanelRequest   = errors.New("panel request failed")
)

// DefaultFlow is the xtls flow assigned to every client we create.
const DefaultFlow = "xtls-rprx-vision"

// ClientTraffic is the live usage record the panel keeps per client email.
type ClientTraffic struct {
	Email      string
	Enable     bool
	Up         int64
	Down       int64
	Total      int64
	ExpiryTime int64 // unix ms, 0 = never
}

// ClientSettings is the provisioning side of a client inside an inbound.
type ClientSettings struct {
	ID         string `json:"id"` // uuid
	Email      string `json:"email"`
	Enable     bool   `json:"enable"`
	Flow       string `json:"flow"`
	LimitIP    int    `json:"limitIp"`
	TotalGB    int64  `json:"totalGB"`
	ExpiryTime int64  `json:"expiryTime"`
	SubID      string `json:"subId"`

	InboundID int `json:"-"`
}

// Panel is the surface the shop service needs from 3x-ui.
type Panel interface {
	Login(ctx context.Context) error
	ClientByEmail(ctx context.Context, email string) (*ClientTraffic, error)
	ClientSettingsByEmail(ctx context.Context, email string) (*ClientSettings, error)
	AddClient(ctx context.Context, inboundID int, c ClientSettings) error
	UpdateClient(ctx context.Context, c ClientSettings) error
	OnlineClients(ctx context.Context) ([]string, error)
}

type Client struct {
	host     string
	username string
	password string
	token    string

	mu   sync.Mutex // guards relogin
	http *http.Client
}

func NewClient(host string, username string, password string, token string) *Client {
	jar, _ := cookiejar.New(nil)

	return &Client{
		host:     strings.TrimSuffix(host, "/"),
		username: username,
		password: password,
		token:    token,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
	}
}

func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx,
		http.MethodPost, c.endpoint("/login"), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if !gjson.GetBytes(body, "success").Bool() {
		return ErrLoginFailed
	}

	return nil
}

func (c *Client) ClientByEmail(ctx context.Context, email string) (*ClientTraffic, error) {
	body, err := c.do(ctx, http.MethodGet, "/panel/api/inbounds/getClientTraffics/"+email, nil)
	if err != nil {
		return nil, err
	}

	obj := gjson.GetBytes(body, "obj")
	if !obj.Exists() || obj.Type == gjson.Null {
		return nil, nil
	}

	return &ClientTraffic{
		Email:      obj.Get("email").String(),
		Enable:     obj.Get("enable").Bool(),
		Up:         obj.Get("up").Int(),
		Down:       obj.Get("down").Int(),
		Total:      obj.Get("total").Int(),
		ExpiryTime: obj.Get("expiryTime").Int(),
	}, nil
}

func (c *Client) ClientSettingsByEmail(ctx context.Context, email string) (*ClientSettings, error) {
	body, err := c.do(ctx, http.MethodGet, "/panel/api/inbounds/list", nil)
	if err != nil {
		return nil, err
	}

	var found *ClientSettings

	gjson.GetBytes(body, "obj").ForEach(func(_, inbound gjson.Result) bool {
		inboundID := int(inbound.Get("id").Int())

		// settings is JSON embedded in a string
		settings := gjson.Parse(inbound.Get("settings").String())

		settings.Get("clients").ForEach(func(_, cl gjson.Result) bool {
			if cl.Get("email").String() != email {
				return true
			}

			found = &ClientSettings{
				ID:         cl.Get("id").String(),
				Email:      email,
				Enable:     cl.Get("enable").Bool(),
				Flow:       cl.Get("flow").String(),
				LimitIP:    int(cl.Get("limitIp").Int()),
				TotalGB:    cl.Get("totalGB").Int(),
				ExpiryTime: cl.Get("expiryTime").Int(),
				SubID:      cl.Get("subId").String(),
				InboundID:  inboundID,
			}
			return false
		})

		return found == nil
	})

	if found == nil {
		return nil, ErrClientNotFound
	}

	return found, nil
}

type clientPayload struct {
	ID       int    `json:"id"`
	Settings string `json:"settings"`
}

func (c *Client) AddClient(ctx context.Context, inboundID int, client ClientSettings) error {
	payload, err := encodeClients(inboundID, client)
	if err != nil {
		return err
	}

	_, err = c.do(ctx, http.MethodPost, "/panel/api/inbounds/addClient", payload)
	return err
}

func (c *Client) UpdateClient(ctx context.Context, client ClientSettings) error {
	payload, err := encodeClients(client.InboundID, client)
	if err != nil {
		return err
	}

	_, err = c.do(ctx, http.MethodPost, "/panel/api/inbounds/updateClient/"+client.ID, payload)
	return err
}

func (c *Client) OnlineClients(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodPost, "/panel/api/inbounds/onlines", []byte("{}"))
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0)
	gjson.GetBytes(body, "obj").ForEach(func(_, v gjson.Result) bool {
		emails = append(emails, v.String())
		return true
	})

	return emails, nil
}

func encodeClients(inboundID int, clients ...ClientSettings) ([]byte, error) {
	settings, err := json.Marshal(map[string]any{
		"clients": clients,
	})
	if err != nil {
		return nil, err
	}

	return json.Marshal(clientPayload{
		ID:       inboundID,
		Settings: string(settings),
	})
}

func (c *Client) do(ctx context.Context, method string, path string, body []byte) ([]byte, error) {
	data, status, err := c.once(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	// Session cookies expire; retry once behind a fresh login.
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.mu.Lock()
		err := c.Login(ctx)
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}

		data, status, err = c.once(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s %s (%d)", ErrPanelRequest, method, path, status)
	}

	if !gjson.GetBytes(data, "success").Bool() {
		msg := gjson.GetBytes(data, "msg").String()
		return nil, fmt.Errorf("%w: %s", ErrPanelRequest, msg)
	}

	return data, nil
}

func (c *Client) once(ctx context.Context, method string, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, 0, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return data, resp.StatusCode, nil
}

func (c *Client) endpoint(path string) string {
	return c.host + path
}
