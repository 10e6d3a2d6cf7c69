// Package api exposes the pairing service over HTTP. Route handlers use the
// shared ok/fail JSON envelope; errors reach the caller exactly once and
// anything that fails after the response is only logged.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/pairgate/pairgate/internal/app"
	"github.com/pairgate/pairgate/internal/archive"
	"github.com/pairgate/pairgate/internal/credstore"
	"github.com/pairgate/pairgate/internal/pairing"
	"github.com/pairgate/pairgate/internal/registry"
	"github.com/pairgate/pairgate/internal/webserver"
)

// artifactWait caps how long a request waits for the workflow to issue its
// QR or pairing code.
const artifactWait = 60 * time.Second

// Deps carries everything the handlers need. BaseCtx outlives individual
// requests; workflows keep running after the HTTP response is sent.
type Deps struct {
	BaseCtx  context.Context
	App      app.AppContext
	Pairing  *pairing.Service
	Archive  *archive.Client
	Creds    *credstore.Store
	Registry *registry.Registry
}

var deps Deps

// InitRouter stores the handler dependencies and registers all routes.
func InitRouter(d Deps) {
	deps = d
	webserver.GET("/health", getHealth)
	webserver.ApiGET("/code", getPairCode)
	webserver.ApiGET("/qr", getPairQR)
	webserver.ApiGET("/download", getDownload)
	webserver.ApiGET("/load", getLoad)
	webserver.ApiGET("/sessions", listSessions)
	webserver.ApiGET("/sessions/status", getSessionStatus)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
			"detail":  detail,
		},
	})
}

// GetDB returns the application database handle from the request context.
func GetDB(c echo.Context) *gorm.DB {
	ac, _ := c.Get(webserver.AppCtxKey).(app.AppContext)
	if ac == nil {
		return nil
	}
	return ac.DB()
}

func getHealth(c echo.Context) error {
	return ok(c, map[string]interface{}{
		"name": "pairgate",
		"time": time.Now().Format(time.RFC3339),
	})
}
