package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/pairgate/pairgate/internal/archive"
	"github.com/pairgate/pairgate/internal/domain"
	"github.com/pairgate/pairgate/internal/pairing"
)

// getPairCode starts a numeric pairing attempt and returns the code.
// GET /api/v1/code?number=15551234567
func getPairCode(c echo.Context) error {
	number := c.QueryParam("number")
	phone, err := pairing.NormalizePhone(number)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_PHONE", "Phone number must contain 10 to 15 digits", nil)
	}

	sessionID := pairing.SanitizeSessionID(c.QueryParam("sessionId"))
	if sessionID == "" {
		sessionID = pairing.NewSessionID()
	}

	art, err := launch(pairing.Params{
		SessionID: sessionID,
		Mode:      pairing.ModeCode,
		Phone:     phone,
	})
	if err != nil {
		return fail(c, http.StatusGatewayTimeout, "PAIRING_TIMEOUT", "Timed out waiting for a pairing code", nil)
	}
	if art.Err != nil {
		return fail(c, http.StatusInternalServerError, "PAIRING_FAILED", "Failed to obtain a pairing code", art.Err.Error())
	}
	return ok(c, map[string]interface{}{
		"code":       art.Code,
		"session_id": sessionID,
	})
}

// getPairQR starts a QR pairing attempt and returns the QR payload.
// GET /api/v1/qr[&format=html]
func getPairQR(c echo.Context) error {
	sessionID := pairing.SanitizeSessionID(c.QueryParam("sessionId"))
	if sessionID == "" {
		sessionID = pairing.NewSessionID()
	}

	art, err := launch(pairing.Params{
		SessionID: sessionID,
		Mode:      pairing.ModeQR,
	})
	if err != nil {
		return fail(c, http.StatusGatewayTimeout, "PAIRING_TIMEOUT", "Timed out waiting for a QR code", nil)
	}
	if art.Err != nil {
		return fail(c, http.StatusInternalServerError, "PAIRING_FAILED", "Failed to obtain a QR code", art.Err.Error())
	}

	dataURL, err := qrDataURL(art.QR)
	if err != nil {
		zap.L().Warn("qr render failed", zap.String("session_id", sessionID), zap.Error(err))
	}

	if c.QueryParam("format") == "html" {
		return c.HTML(http.StatusOK, qrPage(sessionID, dataURL))
	}
	return ok(c, map[string]interface{}{
		"qr":         dataURL,
		"code":       art.QR,
		"session_id": sessionID,
	})
}

// launch runs the workflow under the service base context and waits for the
// first artifact. The workflow keeps going after this returns.
func launch(p pairing.Params) (pairing.Artifact, error) {
	artifacts := make(chan pairing.Artifact, 1)
	p.Deliver = func(a pairing.Artifact) { artifacts <- a }
	go func() {
		if err := deps.Pairing.Run(deps.BaseCtx, p); err != nil {
			zap.L().Warn("pairing run ended with error",
				zap.String("session_id", p.SessionID), zap.Error(err))
		}
	}()

	select {
	case art := <-artifacts:
		return art, nil
	case <-time.After(artifactWait):
		return pairing.Artifact{}, errors.New("artifact wait timed out")
	}
}

// getDownload streams the decrypted credential bundle for a locator.
// GET /api/v1/download?id=SESS~abc123#def456
func getDownload(c echo.Context) error {
	locator := c.QueryParam("id")
	if locator == "" {
		return fail(c, http.StatusBadRequest, "INVALID_LOCATOR", "id is required", nil)
	}
	data, err := deps.Archive.Download(c.Request().Context(), locator)
	switch {
	case errors.Is(err, archive.ErrInvalidLocator):
		return fail(c, http.StatusBadRequest, "INVALID_LOCATOR", "Locator is malformed", err.Error())
	case errors.Is(err, archive.ErrProtocol):
		return fail(c, http.StatusNotFound, "DOWNLOAD_FAILED", "Bundle not found in archive", err.Error())
	case err != nil:
		return fail(c, http.StatusBadGateway, "DOWNLOAD_FAILED", "Failed to fetch bundle", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="creds.db"`)
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

// getLoad re-establishes a retained session.
// GET /api/v1/load?sessionId=pg_xxxx
func getLoad(c echo.Context) error {
	sessionID := pairing.SanitizeSessionID(c.QueryParam("sessionId"))
	if sessionID == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "sessionId is required", nil)
	}
	if err := deps.Pairing.Load(deps.BaseCtx, sessionID); err != nil {
		if errors.Is(err, pairing.ErrSessionNotFound) {
			return fail(c, http.StatusNotFound, "SESSION_NOT_FOUND", "No retained session for that id", nil)
		}
		return fail(c, http.StatusInternalServerError, "LOAD_FAILED", "Failed to load session", err.Error())
	}
	return ok(c, map[string]interface{}{"loaded": true, "session_id": sessionID})
}

// listSessions merges live registry entries, on-disk directories, and the
// session table.
func listSessions(c echo.Context) error {
	metas, err := deps.Creds.List()
	if err != nil {
		zap.L().Warn("session dir list failed", zap.Error(err))
	}

	active := make([]string, 0)
	for _, h := range deps.Registry.ListActive() {
		active = append(active, h.SessionID)
	}

	var rows []domain.WaSession
	if db := GetDB(c); db != nil {
		if err := db.Order("id DESC").Limit(200).Find(&rows).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sessions", err.Error())
		}
	}

	return ok(c, map[string]interface{}{
		"sessions":    rows,
		"directories": metas,
		"active":      active,
	})
}

// getSessionStatus reports whether a session socket is currently registered.
func getSessionStatus(c echo.Context) error {
	sessionID := pairing.SanitizeSessionID(c.QueryParam("sessionId"))
	if sessionID == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "sessionId is required", nil)
	}
	h, live := deps.Registry.Get(sessionID)
	jid := ""
	if live && h.Socket != nil {
		jid = h.Socket.SelfJID()
	}
	return ok(c, map[string]interface{}{
		"session_id": sessionID,
		"active":     live,
		"jid":        jid,
	})
}

// qrDataURL renders the QR payload as an inline PNG.
func qrDataURL(code string) (string, error) {
	if code == "" {
		return "", nil
	}
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func qrPage(sessionID, dataURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>pairgate</title></head>
<body style="font-family:sans-serif;text-align:center;padding-top:40px">
<h3>Scan with WhatsApp</h3>
<img src="%s" alt="QR" width="256" height="256"/>
<p>session %s</p>
</body>
</html>`, dataURL, sessionID)
}
