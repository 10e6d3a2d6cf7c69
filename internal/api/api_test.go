package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairgate/pairgate/internal/credstore"
	"github.com/pairgate/pairgate/internal/registry"
)

func newTestContext(t *testing.T, target string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetHealth(t *testing.T) {
	c, rec := newTestContext(t, "/health")
	require.NoError(t, getHealth(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
}

func TestGetSessionStatus(t *testing.T) {
	deps = Deps{Registry: registry.New(), Creds: credstore.New(t.TempDir())}
	deps.Registry.Put("pglive", nil)

	c, rec := newTestContext(t, "/api/v1/sessions/status?sessionId=pglive")
	require.NoError(t, getSessionStatus(c))
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["active"])

	c, rec = newTestContext(t, "/api/v1/sessions/status?sessionId=pggone")
	require.NoError(t, getSessionStatus(c))
	body = decodeBody(t, rec)
	data = body["data"].(map[string]interface{})
	assert.Equal(t, false, data["active"])
}

func TestSessionIDSanitizedAtBoundary(t *testing.T) {
	deps = Deps{Registry: registry.New()}
	deps.Registry.Put("pglive", nil)

	// path syntax in the id is stripped before any lookup or disk access
	c, rec := newTestContext(t, "/api/v1/sessions/status?sessionId=../pglive")
	require.NoError(t, getSessionStatus(c))
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "pglive", data["session_id"])
	assert.Equal(t, true, data["active"])

	// ids with nothing left after sanitizing are rejected outright
	c, rec = newTestContext(t, "/api/v1/sessions/status?sessionId=../..")
	require.NoError(t, getSessionStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionStatusMissingParam(t *testing.T) {
	deps = Deps{Registry: registry.New()}
	c, rec := newTestContext(t, "/api/v1/sessions/status")
	require.NoError(t, getSessionStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, "MISSING_FIELDS", errObj["code"])
}

func TestGetPairCodeRejectsInvalidPhone(t *testing.T) {
	deps = Deps{Registry: registry.New()}
	c, rec := newTestContext(t, "/api/v1/code?number=123")
	require.NoError(t, getPairCode(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_PHONE", errObj["code"])
}

func TestGetDownloadRequiresLocator(t *testing.T) {
	deps = Deps{}
	c, rec := newTestContext(t, "/api/v1/download")
	require.NoError(t, getDownload(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_LOCATOR", errObj["code"])
}

func TestQRDataURL(t *testing.T) {
	url, err := qrDataURL("2@abcdefg,hijklmn")
	require.NoError(t, err)
	assert.Contains(t, url, "data:image/png;base64,")

	url, err = qrDataURL("")
	require.NoError(t, err)
	assert.Empty(t, url)
}
