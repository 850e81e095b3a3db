package adminapi

import (
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"

	"github.com/openshelf/prodsync/internal/store"
)

// registerEventRoutes exposes the live catalog feed over server-sent
// events. Each event is a full snapshot, the same contract controllers get.
func registerEventRoutes(e *echo.Echo) {
	e.GET("/catalog/events", streamCatalog)
}

func streamCatalog(c echo.Context) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	snapshots := make(chan store.Snapshot, 8)
	unsub, err := GetStore(c).Subscribe(func(snap store.Snapshot) {
		select {
		case snapshots <- snap:
		default:
			// client is not keeping up; it will catch up on the next push
		}
	})
	if err != nil {
		return err
	}
	defer unsub()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-snapshots:
			payload, err := jsoniter.Marshal(snap)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(resp, "event: snapshot\ndata: %s\n\n", payload); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}
