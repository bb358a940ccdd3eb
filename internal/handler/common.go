// Package handler contains the HTTP route layer. Handlers perform
// binding, parameter parsing and capability checks, then delegate to
// the allocation engine or the reporting queries and translate their
// typed errors into HTTP statuses. No business rule lives here.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-reservation/internal/repository"
	"github.com/iliyamo/parking-lot-reservation/internal/service"
)

// getUserID extracts the user_id placed in context by the JWT
// middleware and converts it to uint64. JWT numeric claims arrive as
// float64 after JSON decoding, hence the type switch.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// coreError maps the service/repository error taxonomy onto an HTTP
// response. Unknown errors surface as a generic 500 so no driver
// detail leaks to clients.
func coreError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrLotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "lot not found"})
	case errors.Is(err, service.ErrNoActiveReservation):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active reservation"})
	case errors.Is(err, service.ErrActiveReservation):
		return c.JSON(http.StatusConflict, echo.Map{"error": "you already have an active reservation"})
	case errors.Is(err, service.ErrLotOccupied):
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete lot: at least one spot is occupied"})
	case errors.Is(err, service.ErrNoAvailability):
		return c.JSON(http.StatusConflict, echo.Map{"error": "no available spots in this lot"})
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidInterval):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input"})
	case errors.Is(err, service.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
