package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/queue"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
	"github.com/iliyamo/parking-lot-reservation/internal/service"
)

// Allocator is the slice of the allocation engine the user-facing
// routes need.
type Allocator interface {
	Reserve(ctx context.Context, userID, lotID uint64) (service.ReserveResult, error)
	Release(ctx context.Context, userID uint64) (service.ReleaseResult, error)
	ListLots(ctx context.Context) ([]model.Lot, error)
}

// HistoryQueries reads a user's reservation history.
type HistoryQueries interface {
	UserHistory(ctx context.Context, userID uint64) ([]repository.HistoryItem, error)
}

// TaskPublisher enqueues background tasks; nil disables exports.
type TaskPublisher interface {
	PublishTask(ctx context.Context, t queue.Task) error
}

// ReservationHandler serves the driver-facing routes: the cached lot
// listing, reserve, release, history and export requests.
type ReservationHandler struct {
	Engine  Allocator
	History HistoryQueries
	Tasks   TaskPublisher
}

func NewReservationHandler(engine Allocator, history HistoryQueries, tasks TaskPublisher) *ReservationHandler {
	if engine == nil || history == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: engine, History: history, Tasks: tasks}
}

// lotResp is the wire shape of a lot in listings and admin responses.
type lotResp struct {
	ID                uint64 `json:"id"`
	Name              string `json:"name"`
	Address           string `json:"address"`
	PinCode           string `json:"pin_code"`
	PriceCentsPerHour uint32 `json:"price_cents_per_hour"`
	NumberOfSpots     uint32 `json:"number_of_spots"`
}

func toLotResp(l model.Lot) lotResp {
	return lotResp{
		ID:                l.ID,
		Name:              l.Name,
		Address:           l.Address,
		PinCode:           l.PinCode,
		PriceCentsPerHour: l.PriceCentsPerHour,
		NumberOfSpots:     l.NumberOfSpots,
	}
}

// ListLots handles GET /v1/lots via the read-through cache.
func (h *ReservationHandler) ListLots(c echo.Context) error {
	lots, err := h.Engine.ListLots(c.Request().Context())
	if err != nil {
		return coreError(c, err)
	}
	out := make([]lotResp, 0, len(lots))
	for _, l := range lots {
		out = append(out, toLotResp(l))
	}
	return c.JSON(http.StatusOK, echo.Map{"lots": out})
}

// Reserve handles POST /v1/reservations. The body names the lot; the
// engine picks the spot.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		LotID uint64 `json:"lot_id"`
	}
	if err := c.Bind(&body); err != nil || body.LotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lot_id is required"})
	}
	res, err := h.Engine.Reserve(c.Request().Context(), userID, body.LotID)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Release handles PUT /v1/reservations/active and closes the caller's
// open reservation.
func (h *ReservationHandler) Release(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Engine.Release(c.Request().Context(), userID)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListHistory handles GET /v1/reservations: the caller's full parking
// history, newest first.
func (h *ReservationHandler) ListHistory(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.History.UserHistory(c.Request().Context(), userID)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"history": items})
}

// RequestExport handles POST /v1/exports: it enqueues a CSV export of
// the caller's history and returns 202. The artifact is produced
// asynchronously by the task worker.
func (h *ReservationHandler) RequestExport(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Tasks == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "exports unavailable"})
	}
	args := map[string]string{"user_id": strconv.FormatUint(userID, 10)}
	if from := c.QueryParam("from"); from != "" {
		args["from"] = from
	}
	if to := c.QueryParam("to"); to != "" {
		args["to"] = to
	}
	task := queue.Task{Name: queue.TaskExportHistory, Args: args}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	if err := h.Tasks.PublishTask(ctx, task); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not enqueue export"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "queued"})
}
