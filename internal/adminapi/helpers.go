package adminapi

import (
	"strconv"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openshelf/prodsync/internal/auth"
	"github.com/openshelf/prodsync/internal/catalog"
	"github.com/openshelf/prodsync/internal/store"
)

const (
	ctxKeyDB      = "adminapi.db"
	ctxKeyStore   = "adminapi.store"
	ctxKeyAuth    = "adminapi.auth"
	ctxKeyManager = "adminapi.manager"
)

// Deps carries the collaborators the handlers reach through the echo
// context; nothing is looked up from ambient globals.
type Deps struct {
	DB      *gorm.DB
	Store   store.RecordStore
	Auth    auth.AuthSession
	Manager *catalog.Manager
}

// Attach installs the dependency middleware and registers all routes.
func Attach(e *echo.Echo, deps Deps) {
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ctxKeyDB, deps.DB)
			c.Set(ctxKeyStore, deps.Store)
			c.Set(ctxKeyAuth, deps.Auth)
			c.Set(ctxKeyManager, deps.Manager)
			return next(c)
		}
	})
	registerAuthRoutes(e)
	registerProductRoutes(e)
	registerWorkbenchRoutes(e)
	registerEventRoutes(e)

	e.GET("/healthz", func(c echo.Context) error {
		return ok(c, map[string]interface{}{"status": "up"})
	})
}

func GetDB(c echo.Context) *gorm.DB {
	return c.Get(ctxKeyDB).(*gorm.DB)
}

func GetStore(c echo.Context) store.RecordStore {
	return c.Get(ctxKeyStore).(store.RecordStore)
}

func GetAuth(c echo.Context) auth.AuthSession {
	return c.Get(ctxKeyAuth).(auth.AuthSession)
}

func GetManager(c echo.Context) *catalog.Manager {
	return c.Get(ctxKeyManager).(*catalog.Manager)
}

// currentUser returns the subject of the validated session token.
func currentUser(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.RegisteredClaims)
	if !ok {
		return ""
	}
	return token.Subject
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(200, map[string]interface{}{
		"code": 0,
		"data": data,
	})
}

func fail(c echo.Context, status int, code, msg string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":   1,
		"error":  code,
		"msg":    msg,
		"detail": detail,
	})
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(200, map[string]interface{}{
		"code":      0,
		"data":      rows,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func parsePagination(c echo.Context) (page, pageSize int) {
	page, pageSize = 1, 20
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	return page, pageSize
}
