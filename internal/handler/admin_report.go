package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/queue"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
)

// ReportQueries is the committed-state-only query surface behind the
// admin reporting routes.
type ReportQueries interface {
	Drivers(ctx context.Context) ([]model.User, error)
	AllReservations(ctx context.Context) ([]repository.AdminHistoryItem, error)
	Revenue(ctx context.Context) ([]repository.RevenueRow, error)
}

// AdminReportHandler serves the admin read endpoints and the manual
// trigger for the periodic activity report.
type AdminReportHandler struct {
	Reports ReportQueries
	Tasks   TaskPublisher
}

func NewAdminReportHandler(reports ReportQueries, tasks TaskPublisher) *AdminReportHandler {
	if reports == nil {
		panic("nil reports passed to NewAdminReportHandler")
	}
	return &AdminReportHandler{Reports: reports, Tasks: tasks}
}

// ListUsers handles GET /v1/admin/users. Password hashes never leave
// the repository layer.
func (h *AdminReportHandler) ListUsers(c echo.Context) error {
	users, err := h.Reports.Drivers(c.Request().Context())
	if err != nil {
		return coreError(c, err)
	}
	type userResp struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, userResp{ID: u.ID, Username: u.Username, Role: u.Role})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// ListReservations handles GET /v1/admin/reservations.
func (h *AdminReportHandler) ListReservations(c echo.Context) error {
	items, err := h.Reports.AllReservations(c.Request().Context())
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": items})
}

// Revenue handles GET /v1/admin/revenue: total collected per lot.
func (h *AdminReportHandler) Revenue(c echo.Context) error {
	rows, err := h.Reports.Revenue(c.Request().Context())
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"revenue_summary": rows})
}

// RequestActivityReport handles POST /v1/admin/reports/activity and
// enqueues the per-driver activity summary for the worker.
func (h *AdminReportHandler) RequestActivityReport(c echo.Context) error {
	if h.Tasks == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "reports unavailable"})
	}
	args := map[string]string{}
	if from := c.QueryParam("from"); from != "" {
		args["from"] = from
	}
	if to := c.QueryParam("to"); to != "" {
		args["to"] = to
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	if err := h.Tasks.PublishTask(ctx, queue.Task{Name: queue.TaskActivityReport, Args: args}); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not enqueue report"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "queued"})
}
