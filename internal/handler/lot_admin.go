package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
	"github.com/iliyamo/parking-lot-reservation/internal/service"
)

// LotAdmin is the slice of the allocation engine the admin lot routes
// need.
type LotAdmin interface {
	CreateLot(ctx context.Context, p service.CreateLotParams) (*model.Lot, error)
	UpdateLot(ctx context.Context, lotID uint64, p service.UpdateLotParams) (*model.Lot, error)
	DeleteLot(ctx context.Context, lotID uint64) error
}

// LotAdminHandler serves the admin lot CRUD. Reads go straight to the
// repositories; mutations go through the engine so invariants and
// cache invalidation hold.
type LotAdminHandler struct {
	Engine LotAdmin
	Lots   *repository.LotRepo
	Spots  *repository.SpotRepo
}

func NewLotAdminHandler(engine LotAdmin, lots *repository.LotRepo, spots *repository.SpotRepo) *LotAdminHandler {
	if engine == nil || lots == nil || spots == nil {
		panic("nil dependency passed to NewLotAdminHandler")
	}
	return &LotAdminHandler{Engine: engine, Lots: lots, Spots: spots}
}

func lotIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// CreateLot handles POST /v1/admin/lots: the lot row plus its numbered
// spots are created atomically.
func (h *LotAdminHandler) CreateLot(c echo.Context) error {
	var body struct {
		Name              string `json:"name"`
		Address           string `json:"address"`
		PinCode           string `json:"pin_code"`
		PriceCentsPerHour uint32 `json:"price_cents_per_hour"`
		NumberOfSpots     uint32 `json:"number_of_spots"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	lot, err := h.Engine.CreateLot(c.Request().Context(), service.CreateLotParams{
		Name:              body.Name,
		Address:           body.Address,
		PinCode:           body.PinCode,
		PriceCentsPerHour: body.PriceCentsPerHour,
		NumberOfSpots:     body.NumberOfSpots,
	})
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusCreated, toLotResp(*lot))
}

// GetLot handles GET /v1/admin/lots/:id and nests the lot's spots in
// the response.
func (h *LotAdminHandler) GetLot(c echo.Context) error {
	id, ok := lotIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	ctx := c.Request().Context()
	lot, err := h.Lots.GetByID(ctx, id)
	if err != nil {
		return coreError(c, err)
	}
	spots, err := h.Spots.GetByLot(ctx, id)
	if err != nil {
		return coreError(c, err)
	}
	type spotResp struct {
		ID         uint64 `json:"id"`
		SpotNumber uint32 `json:"spot_number"`
		Status     string `json:"status"`
	}
	out := make([]spotResp, 0, len(spots))
	for _, s := range spots {
		out = append(out, spotResp{ID: s.ID, SpotNumber: s.SpotNumber, Status: s.Status})
	}
	return c.JSON(http.StatusOK, echo.Map{"lot": toLotResp(*lot), "spots": out})
}

// UpdateLot handles PUT /v1/admin/lots/:id with a partial update; the
// spot count cannot be changed.
func (h *LotAdminHandler) UpdateLot(c echo.Context) error {
	id, ok := lotIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	var body struct {
		Name              *string `json:"name"`
		Address           *string `json:"address"`
		PinCode           *string `json:"pin_code"`
		PriceCentsPerHour *uint32 `json:"price_cents_per_hour"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	lot, err := h.Engine.UpdateLot(c.Request().Context(), id, service.UpdateLotParams{
		Name:              body.Name,
		Address:           body.Address,
		PinCode:           body.PinCode,
		PriceCentsPerHour: body.PriceCentsPerHour,
	})
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, toLotResp(*lot))
}

// DeleteLot handles DELETE /v1/admin/lots/:id. Deletion cascades to
// the spots and is refused while any spot is occupied.
func (h *LotAdminHandler) DeleteLot(c echo.Context) error {
	id, ok := lotIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	if err := h.Engine.DeleteLot(c.Request().Context(), id); err != nil {
		return coreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
