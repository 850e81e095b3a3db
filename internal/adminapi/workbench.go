package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/prodsync/internal/catalog"
)

type fieldPayload struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// registerWorkbenchRoutes exposes the per-user editing workbench: a live
// controller mirroring the catalog feed plus the add-or-edit form session.
func registerWorkbenchRoutes(e *echo.Echo) {
	e.GET("/workbench/session", workbenchSession)
	e.POST("/workbench/begin-edit/:id", workbenchBeginEdit)
	e.POST("/workbench/field", workbenchSetField)
	e.POST("/workbench/submit", workbenchSubmit)
	e.DELETE("/workbench/records/:id", workbenchDelete)
}

func acquireWorkbench(c echo.Context) (*catalog.Controller, error) {
	owner := currentUser(c)
	if owner == "" {
		return nil, errors.New("no authenticated user")
	}
	return GetManager(c).Acquire(owner)
}

// workbenchClosed answers a request whose controller was stopped (sign-out
// or idle sweep) between acquire and dispatch.
func workbenchClosed(c echo.Context) error {
	return fail(c, http.StatusConflict, "WORKBENCH_CLOSED", "Workbench session was closed", nil)
}

func workbenchSession(c echo.Context) error {
	ctl, err := acquireWorkbench(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_SESSION", "No workbench session", err.Error())
	}
	var out map[string]interface{}
	ran := ctl.Do(func() {
		sess := ctl.Session()
		out = map[string]interface{}{
			"mode":      sess.Mode.String(),
			"target_id": sess.TargetID,
			"draft":     sess.Draft,
			"records":   ctl.List(),
		}
	})
	if !ran {
		return workbenchClosed(c)
	}
	return ok(c, out)
}

func workbenchBeginEdit(c echo.Context) error {
	ctl, err := acquireWorkbench(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_SESSION", "No workbench session", err.Error())
	}
	id := strings.TrimSpace(c.Param("id"))

	var opErr error
	if !ctl.Do(func() { opErr = ctl.BeginEdit(id) }) {
		return workbenchClosed(c)
	}
	if errors.Is(opErr, catalog.ErrNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Record is not in the current snapshot", nil)
	}
	if opErr != nil {
		return fail(c, http.StatusInternalServerError, "WORKBENCH_ERROR", "Begin edit failed", opErr.Error())
	}
	return ok(c, map[string]interface{}{"editing": id})
}

func workbenchSetField(c echo.Context) error {
	ctl, err := acquireWorkbench(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_SESSION", "No workbench session", err.Error())
	}
	var payload fieldPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse field", err.Error())
	}

	var opErr error
	if !ctl.Do(func() { opErr = ctl.SetField(catalog.Field(payload.Field), payload.Value) }) {
		return workbenchClosed(c)
	}
	if opErr != nil {
		return fail(c, http.StatusBadRequest, "INVALID_FIELD", opErr.Error(), nil)
	}
	return ok(c, map[string]interface{}{"field": payload.Field})
}

func workbenchSubmit(c echo.Context) error {
	ctl, err := acquireWorkbench(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_SESSION", "No workbench session", err.Error())
	}

	ctx := c.Request().Context()
	var (
		res    <-chan error
		synErr error
	)
	if !ctl.Do(func() { res, synErr = ctl.Submit(ctx) }) {
		return workbenchClosed(c)
	}

	var verr *catalog.ValidationError
	if errors.As(synErr, &verr) {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Required fields are empty", verr.Missing)
	}
	if synErr != nil {
		return fail(c, http.StatusInternalServerError, "WORKBENCH_ERROR", "Submit failed", synErr.Error())
	}

	select {
	case remoteErr := <-res:
		if remoteErr != nil {
			return fail(c, http.StatusBadGateway, "REMOTE_ERROR", "Backend rejected the mutation", remoteErr.Error())
		}
	case <-ctx.Done():
		return fail(c, http.StatusGatewayTimeout, "REMOTE_TIMEOUT", "Mutation outcome not received", nil)
	}
	return ok(c, map[string]interface{}{"submitted": true})
}

func workbenchDelete(c echo.Context) error {
	ctl, err := acquireWorkbench(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "NO_SESSION", "No workbench session", err.Error())
	}
	id := strings.TrimSpace(c.Param("id"))

	ctx := c.Request().Context()
	var (
		res    <-chan error
		synErr error
	)
	if !ctl.Do(func() { res, synErr = ctl.DeleteRecord(ctx, id) }) {
		return workbenchClosed(c)
	}

	if errors.Is(synErr, catalog.ErrNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Record is not in the current snapshot", nil)
	}
	if synErr != nil {
		return fail(c, http.StatusInternalServerError, "WORKBENCH_ERROR", "Delete failed", synErr.Error())
	}

	select {
	case remoteErr := <-res:
		if remoteErr != nil {
			return fail(c, http.StatusBadGateway, "REMOTE_ERROR", "Backend rejected the delete", remoteErr.Error())
		}
	case <-ctx.Done():
		return fail(c, http.StatusGatewayTimeout, "REMOTE_TIMEOUT", "Delete outcome not received", nil)
	}
	return ok(c, map[string]interface{}{"deleted": id})
}
