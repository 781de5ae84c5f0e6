package xui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const inboundsResponse = `{
	"success": true,
	"obj": [
		{
			"id": 1,
			"remark": "vless-in",
			"settings": "{\"clients\":[{\"id\":\"6e8a2f3c-1111-4222-8333-444455556666\",\"email\":\"100\",\"enable\":true,\"flow\":\"xtls-rprx-vision\",\"limitIp\":3,\"totalGB\":0,\"expiryTime\":1767222000000,\"subId\":\"6e8a2f3c-1111-4222-8333-444455556666\"}]}"
		}
	]
}`

func TestClientByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/panel/api/inbounds/getClientTraffics/100":
			w.Write([]byte(`{
				"success": true,
				"obj": {"email": "100", "enable": true, "up": 1024, "down": 2048, "total": 0, "expiryTime": 1767222000000}
			}`))
		case "/panel/api/inbounds/getClientTraffics/999":
			w.Write([]byte(`{"success": true, "obj": null}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "admin", "")

	traffic, err := c.ClientByEmail(context.Background(), "100")
	require.NoError(t, err)
	require.NotNil(t, traffic)
	assert.Equal(t, "100", traffic.Email)
	assert.EqualValues(t, 1024, traffic.Up)
	assert.EqualValues(t, 2048, traffic.Down)
	assert.EqualValues(t, 1767222000000, traffic.ExpiryTime)

	// unknown clients come back as a null obj, not an error
	traffic, err = c.ClientByEmail(context.Background(), "999")
	require.NoError(t, err)
	assert.Nil(t, traffic)
}

func TestClientSettingsByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/panel/api/inbounds/list", r.URL.Path)
		w.Write([]byte(inboundsResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "admin", "")

	settings, err := c.ClientSettingsByEmail(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "6e8a2f3c-1111-4222-8333-444455556666", settings.ID)
	assert.Equal(t, 3, settings.LimitIP)
	assert.Equal(t, DefaultFlow, settings.Flow)
	assert.Equal(t, 1, settings.InboundID)

	_, err = c.ClientSettingsByEmail(context.Background(), "999")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestAddClient(t *testing.T) {
	var payload []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/panel/api/inbounds/addClient", r.URL.Path)

		payload, _ = io.ReadAll(r.Body)

		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "admin", "")

	settings := ClientSettings{
		ID:         "6e8a2f3c-1111-4222-8333-444455556666",
		Email:      "100",
		Enable:     true,
		Flow:       DefaultFlow,
		LimitIP:    3,
		ExpiryTime: 1767222000000,
		SubID:      "6e8a2f3c-1111-4222-8333-444455556666",
	}

	err := c.AddClient(context.Background(), 1, settings)
	require.NoError(t, err)

	// the panel expects client settings as JSON embedded in a string
	assert.EqualValues(t, 1, gjson.GetBytes(payload, "id").Int())

	embedded := gjson.GetBytes(payload, "settings").String()

	var decoded struct {
		Clients []ClientSettings `json:"clients"`
	}
	require.NoError(t, json.Unmarshal([]byte(embedded), &decoded))
	require.Len(t, decoded.Clients, 1)
	assert.Equal(t, settings.Email, decoded.Clients[0].Email)
	assert.Equal(t, settings.LimitIP, decoded.Clients[0].LimitIP)
}

func TestReloginOnExpiredSession(t *testing.T) {
	logins := 0
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			logins++
			w.Write([]byte(`{"success": true}`))
		case "/panel/api/inbounds/list":
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(inboundsResponse))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "admin", "")

	_, err := c.ClientSettingsByEmail(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 1, logins)
	assert.Equal(t, 2, calls)
}

func TestPanelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "msg": "inbound not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "admin", "")

	_, err := c.ClientSettingsByEmail(context.Background(), "100")
	assert.ErrorIs(t, err, ErrPanelRequest)
}

func TestOnlineClients(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/panel/api/inbounds/onlines", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"success": true, "obj": ["100", "200"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "admin", "")

	emails, err := c.OnlineClients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200"}, emails)
}
