package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers.  It reports
// only that the process is serving; backend, Redis and broker health
// are each allowed to degrade independently.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
