// Package webserver owns the echo instance: serializer, middleware,
// route groups and lifecycle. Handler packages register themselves on
// the groups it exposes.
package webserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/talkincode/eazybuy/config"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonSerializer plugs jsoniter into echo.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
	}
	return nil
}

// WebServer wraps echo with the storefront's route groups.
type WebServer struct {
	e   *echo.Echo
	cfg *config.AppConfig
}

func New(cfg *config.AppConfig) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Logger.SetOutput(io.Discard)

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Debug("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	return &WebServer{e: e, cfg: cfg}
}

func (s *WebServer) Echo() *echo.Echo {
	return s.e
}

// PublicGroup carries unauthenticated routes: catalog browsing,
// registration, logins.
func (s *WebServer) PublicGroup() *echo.Group {
	return s.e.Group("/api/v1")
}

// StoreGroup carries shopper routes. A bearer token is honoured when
// present; anonymous shoppers pass through as guests identified by a
// client-supplied guest key.
func (s *WebServer) StoreGroup() *echo.Group {
	g := s.e.Group("/api/v1/store")
	g.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(s.cfg.Web.Secret),
		NewClaimsFunc: newClaims,
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			// guest access is fine, a bad token is not
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return nil
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		},
	}))
	return g
}

// AdminGroup carries the admin console API; every route requires an
// operator token.
func (s *WebServer) AdminGroup() *echo.Group {
	g := s.e.Group("/api/v1/admin")
	g.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(s.cfg.Web.Secret),
		NewClaimsFunc: newClaims,
	}))
	g.Use(requireOperator)
	return g
}

// Start serves until ctx is cancelled, then drains for up to 10s.
func (s *WebServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.L().Info("starting web server", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	}
}
