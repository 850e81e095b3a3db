// Package webserver hosts the echo HTTP surface: JSON serialization via
// json-iterator, zap request logging, JWT-guarded API routes.
package webserver

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/openshelf/prodsync/config"
	"github.com/openshelf/prodsync/internal/auth"
)

// JsonSerializer plugs json-iterator into echo.
type JsonSerializer struct{}

func (JsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := jsoniter.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (JsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := jsoniter.NewDecoder(c.Request().Body).Decode(i)
	if err == io.EOF {
		return echo.NewHTTPError(http.StatusBadRequest, "Request body is empty").SetInternal(err)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to parse JSON body").SetInternal(err)
	}
	return nil
}

type WebServer struct {
	cfg  *config.AppConfig
	root *echo.Echo
}

func NewWebServer(cfg *config.AppConfig, authSvc *auth.Service) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = JsonSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64M"))
	e.Use(requestLogger())
	e.Use(jwtGuard(cfg, authSvc))
	return &WebServer{cfg: cfg, root: e}
}

// Echo exposes the underlying engine for route registration.
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

func (s *WebServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.L().Info("starting web server", zap.String("listen", addr))
	err := s.root.Start(addr)
	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "webserver: start")
	}
	return nil
}

func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			zap.L().Debug("http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("elapsed", time.Since(start)),
			)
			return err
		}
	}
}

// jwtGuard protects the API; auth endpoints and the health probe stay open.
// Tokens revoked via sign-out are rejected even before expiry.
func jwtGuard(cfg *config.AppConfig, authSvc *auth.Service) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/auth/") || p == "/healthz"
		},
		ParseTokenFunc: func(c echo.Context, tokenStr string) (interface{}, error) {
			claims, err := authSvc.ParseToken(tokenStr)
			if err != nil {
				return nil, err
			}
			if authSvc.IsRevoked(c.Request().Context(), claims.ID) {
				return nil, auth.ErrBadToken
			}
			return claims, nil
		},
	})
}
