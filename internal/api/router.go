package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// requestValidator implements echo.Validator using go-playground/validator.
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// NewRouter mounts the REST endpoints and, when ws is not nil, the client
// websocket at /v1/ws.
func NewRouter(h *Handlers, ws http.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			h.log.Debug("http",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/readyz", h.HandleReady)

	v1 := e.Group("/v1")
	v1.GET("/catalog", h.HandleListSubjects)
	v1.GET("/catalog/subjects/:id", h.HandleGetSubject)
	v1.GET("/help", h.HandleHelp)

	v1.GET("/session", h.HandleSnapshot)
	v1.GET("/session/events", h.HandleListEvents)
	v1.POST("/session/tap", h.HandleTap)
	v1.POST("/session/listen", h.HandleListen)
	v1.POST("/session/token", h.HandleMintClientToken)

	if ws != nil {
		v1.GET("/ws", echo.WrapHandler(ws))
	}
	return e
}
