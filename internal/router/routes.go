package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Artufe/bravo-tango-bravo/internal/auth"
	"github.com/Artufe/bravo-tango-bravo/internal/config"
	"github.com/Artufe/bravo-tango-bravo/internal/handler"
	"github.com/Artufe/bravo-tango-bravo/internal/metrics"
	middlewarepkg "github.com/Artufe/bravo-tango-bravo/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Queries     *handler.QueriesHandler
	AdminUpload *handler.AdminUploadHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	secured := e.Group("")
	secured.Use(middlewarepkg.JWT(jwtManager))

	enqueueLimit := middlewarepkg.RateLimiter(cfg.RateLimitEnqueue)

	secured.POST("/queries", handlers.Queries.Start, enqueueLimit)
	secured.GET("/queries/:id/companies", handlers.Queries.Companies)

	admin := secured.Group("/admin", middlewarepkg.RequireRole(auth.RoleAdmin))
	admin.POST("/upload-csv", handlers.AdminUpload.UploadCSV, enqueueLimit)
}
