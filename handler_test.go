package connect

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukgber-glitch/ledgerlink/storage"
)

func newTestServer(t *testing.T) (*testEnv, *httptest.Server) {
	t.Helper()
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(NewHandler(env.manager).Routes())
	t.Cleanup(srv.Close)
	return env, srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func postJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHandlerAuthURL(t *testing.T) {
	_, srv := newTestServer(t)

	var result AuthURLResult
	resp := getJSON(t, srv.URL+"/connect/url?tenant_id=tenant-1", &result)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, result.AuthURL)
	assert.NotEmpty(t, result.State)
}

func TestHandlerAuthURLMissingTenant(t *testing.T) {
	_, srv := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/connect/url", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, ErrorCodeBadRequest, body["error"])
}

func TestHandlerCallbackFlow(t *testing.T) {
	_, srv := newTestServer(t)

	var authRes AuthURLResult
	getJSON(t, srv.URL+"/connect/url?tenant_id=tenant-1", &authRes)

	var info ConnectionInfo
	resp := getJSON(t, srv.URL+"/connect/callback?code=code-1&state="+authRes.State, &info)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(storage.StatusConnected), info.Status)
	assert.Equal(t, "org-1", info.ExternalOrgID)

	// Replaying the state over HTTP is rejected like everywhere else.
	var body map[string]string
	resp = getJSON(t, srv.URL+"/connect/callback?code=code-1&state="+authRes.State, &body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ErrorCodeUnauthorized, body["error"])
}

func TestHandlerCallbackProviderDenial(t *testing.T) {
	_, srv := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/connect/callback?error=access_denied", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, ErrorCodeBadRequest, body["error"])
}

func TestHandlerConnectionsAndStatus(t *testing.T) {
	env, srv := newTestServer(t)
	env.connect(t, "tenant-1")

	var infos []ConnectionInfo
	resp := getJSON(t, srv.URL+"/connections?tenant_id=tenant-1", &infos)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, infos, 1)
	assert.Equal(t, "org-1", infos[0].ExternalOrgID)

	var info *ConnectionInfo
	resp = getJSON(t, srv.URL+"/connections/status?tenant_id=tenant-1&external_org_id=org-1", &info)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, info)
	assert.True(t, info.IsConnected)

	// Absent connections are a null body, not an error.
	info = nil
	resp = getJSON(t, srv.URL+"/connections/status?tenant_id=tenant-2", &info)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, info)
}

func TestHandlerRefreshAndDisconnect(t *testing.T) {
	env, srv := newTestServer(t)
	env.connect(t, "tenant-1")

	var refreshRes RefreshResult
	resp := postJSON(t, srv.URL+"/connections/refresh?tenant_id=tenant-1&external_org_id=org-1", &refreshRes)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, refreshRes.Success)

	var discRes DisconnectResult
	resp = postJSON(t, srv.URL+"/connections/disconnect?tenant_id=tenant-1&external_org_id=org-1", &discRes)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, discRes.Success)

	var body map[string]string
	resp = postJSON(t, srv.URL+"/connections/disconnect?tenant_id=tenant-1&external_org_id=org-1", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, ErrorCodeNotFound, body["error"])
}

func TestHandlerDoesNotRouteDecryptedTokens(t *testing.T) {
	env, srv := newTestServer(t)
	env.connect(t, "tenant-1")

	for _, path := range []string{
		"/connections/tokens?tenant_id=tenant-1",
		"/connect/tokens?tenant_id=tenant-1",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "plaintext tokens must not be routable at %s", path)
	}
}
