package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazow/wifiap/config"
	"github.com/shazow/wifiap/wifi"
	"github.com/shazow/wifiap/wifi/manager"
	"github.com/shazow/wifiap/wifi/mock"
)

const testConfig = `
[WiFiAP]
Ssid = "Guest <lobby>"
IpAddress = "192.168.4.1"
SubnetMask = "255.255.255.0"
MaxConnections = 4
`

func setupTestRouter(t *testing.T) (*gin.Engine, *mock.Platform) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p := mock.New()
	p.Adapters[0].ReportDelay = 0
	provider, err := config.Load(strings.NewReader(testConfig))
	require.NoError(t, err)
	m, err := manager.New(p, provider, nil, manager.WithScanTimeout(2*time.Second))
	require.NoError(t, err)

	router := gin.New()
	NewHandler(m, m.Settings().SSID, nil).RegisterRoutes(router)
	return router, p
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) manager.Status {
	t.Helper()
	var st manager.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func TestGetStatus(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, manager.Status{
		WiFiEnabled:   true,
		WiFiIPAddress: "10.0.0.23",
	}, decodeStatus(t, w))
}

func TestGetNetworks(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := serve(router, http.MethodGet, "/api/v1/networks", "")
	require.Equal(t, http.StatusOK, w.Code)

	var networks []wifi.NetworkInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &networks))
	require.Len(t, networks, 7)
	assert.Equal(t, "HideYoKidsHideYoWiFi", networks[0].SSID)
	for i := 1; i < len(networks); i++ {
		assert.GreaterOrEqual(t, networks[i-1].RSSI, networks[i].RSSI)
	}
}

func TestGetNetworks_NoAdapter(t *testing.T) {
	router, p := setupTestRouter(t)
	p.Adapters = nil

	w := serve(router, http.MethodGet, "/api/v1/networks", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestSetWiFi(t *testing.T) {
	router, p := setupTestRouter(t)

	w := serve(router, http.MethodPut, "/api/v1/wifi", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	st := decodeStatus(t, w)
	assert.False(t, st.WiFiEnabled)
	assert.True(t, st.PendingChanges)
	assert.Equal(t, []string{"wlan0: save options=1"}, p.Journal())
}

func TestSetWiFi_BadRequest(t *testing.T) {
	router, p := setupTestRouter(t)

	for _, body := range []string{`{}`, `not json`} {
		w := serve(router, http.MethodPut, "/api/v1/wifi", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, p.Journal())
}

func TestSetAP(t *testing.T) {
	router, p := setupTestRouter(t)

	w := serve(router, http.MethodPut, "/api/v1/ap", `{"enabled": true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeStatus(t, w).APEnabled)

	saved, ok := p.APConfigs[0].LastSaved()
	require.True(t, ok)
	assert.Equal(t, "Guest <lobby>", saved.SSID)
	assert.Equal(t, wifi.SecurityOpen, saved.Security)
}

func TestSetAP_SaveError(t *testing.T) {
	router, p := setupTestRouter(t)
	p.APConfigs[0].SaveError = errors.New("read-only filesystem")

	w := serve(router, http.MethodPut, "/api/v1/ap", `{"enabled": true}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "read-only filesystem")
}

func TestDisconnect(t *testing.T) {
	router, p := setupTestRouter(t)

	w := serve(router, http.MethodPost, "/api/v1/wifi/disconnect", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decodeStatus(t, w).WiFiIPAddress)
	assert.Equal(t, 1, p.Adapters[0].Disconnects())
}

func TestDHCP(t *testing.T) {
	router, p := setupTestRouter(t)

	w := serve(router, http.MethodPost, "/api/v1/dhcp/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeStatus(t, w).DHCPRunning)
	assert.Equal(t, "http://192.168.4.1", p.DHCP.CaptivePortalURL)

	w = serve(router, http.MethodPost, "/api/v1/dhcp/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeStatus(t, w).DHCPRunning)
	assert.Equal(t, 1, p.DHCP.StartCalls())

	w = serve(router, http.MethodPost, "/api/v1/dhcp/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeStatus(t, w).DHCPRunning)
}

func TestDHCP_StartFails(t *testing.T) {
	router, p := setupTestRouter(t)
	_, err := p.NewDHCPServer("")
	require.NoError(t, err)
	boom := errors.New("address in use")
	p.DHCP.StartErrors = []error{boom, boom, boom}

	w := serve(router, http.MethodPost, "/api/v1/dhcp/start", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "address in use")
}

func TestPortal(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := serve(router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Guest &lt;lobby&gt;")
	assert.Contains(t, w.Body.String(), "Uplink is online.")
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotImplemented, statusCode(wifi.ErrNotSupported))
	assert.Equal(t, http.StatusServiceUnavailable, statusCode(wifi.ErrNoScanAdapter))
	assert.Equal(t, http.StatusInternalServerError, statusCode(errors.New("boom")))
}
