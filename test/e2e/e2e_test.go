// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kredmitra/internal/store"
	"kredmitra/internal/ussd"
)

// These tests run against a deployed server and are skipped unless
// KREDMITRA_E2E_URL points at its API listener. KREDMITRA_E2E_HEALTH_URL and
// KREDMITRA_E2E_ZEEBE enable the ops and broker checks.

var (
	apiURL    string
	healthURL string
	client    = &http.Client{Timeout: 2 * time.Minute}
)

func TestMain(m *testing.M) {
	apiURL = os.Getenv("KREDMITRA_E2E_URL")
	healthURL = os.Getenv("KREDMITRA_E2E_HEALTH_URL")
	os.Exit(m.Run())
}

func requireServer(t *testing.T) {
	t.Helper()
	if apiURL == "" {
		t.Skip("KREDMITRA_E2E_URL not set")
	}
}

func call(t *testing.T, method, url, token string, body interface{}) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func login(t *testing.T, mobile string) string {
	t.Helper()
	status, body := call(t, http.MethodPost, apiURL+"/api/auth/login", "", map[string]string{
		"mobile":   mobile,
		"password": store.DemoPassword,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var out struct {
		Session struct {
			Token string `json:"token"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Session.Token)
	return out.Session.Token
}

func TestHealthEndpoints(t *testing.T) {
	if healthURL == "" {
		t.Skip("KREDMITRA_E2E_HEALTH_URL not set")
	}

	status, body := call(t, http.MethodGet, healthURL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "healthy")

	status, body = call(t, http.MethodGet, healthURL+"/ready", "", nil)
	assert.Equal(t, http.StatusOK, status, string(body))

	status, body = call(t, http.MethodGet, healthURL+"/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "kredmitra_")
}

func TestDemoUserSession(t *testing.T) {
	requireServer(t)

	token := login(t, "9876543210")

	status, body := call(t, http.MethodGet, apiURL+"/api/me", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"mobile":"9876543210"`)
	assert.NotContains(t, string(body), "passwordHash")

	status, _ = call(t, http.MethodPost, apiURL+"/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, http.MethodGet, apiURL+"/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUSSDSessionStarts(t *testing.T) {
	requireServer(t)

	sessionID := "e2e-" + uuid.NewString()
	status, body := call(t, http.MethodPost, apiURL+"/api/ussd", "", map[string]string{"sessionId": sessionID, "text": ""})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CON "+ussd.MsgWelcome, string(body))

	status, body = call(t, http.MethodPost, apiURL+"/api/ussd", "", map[string]string{"sessionId": sessionID, "text": "Ramesh Kumar"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "CON ")
}

func TestZeebeTopology(t *testing.T) {
	addr := os.Getenv("KREDMITRA_E2E_ZEEBE")
	if addr == "" {
		t.Skip("KREDMITRA_E2E_ZEEBE not set")
	}

	zc, err := zbc.NewClient(&zbc.ClientConfig{GatewayAddress: addr, UsePlaintextConnection: true})
	require.NoError(t, err, fmt.Sprintf("connect to %s", addr))
	defer zc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	topology, err := zc.NewTopologyCommand().Send(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, topology.Brokers)
}
