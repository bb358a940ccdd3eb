package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
	"github.com/iliyamo/parking-lot-reservation/internal/service"
)

type fakeLotAdmin struct {
	createLot *model.Lot
	createErr error
	updateLot *model.Lot
	updateErr error
	deleteErr error

	gotCreate service.CreateLotParams
	gotUpdate service.UpdateLotParams
	gotDelete uint64
}

func (f *fakeLotAdmin) CreateLot(ctx context.Context, p service.CreateLotParams) (*model.Lot, error) {
	f.gotCreate = p
	return f.createLot, f.createErr
}

func (f *fakeLotAdmin) UpdateLot(ctx context.Context, lotID uint64, p service.UpdateLotParams) (*model.Lot, error) {
	f.gotUpdate = p
	return f.updateLot, f.updateErr
}

func (f *fakeLotAdmin) DeleteLot(ctx context.Context, lotID uint64) error {
	f.gotDelete = lotID
	return f.deleteErr
}

func newAdminHandler(engine LotAdmin) *LotAdminHandler {
	// The repositories are only hit by GetLot, which these tests do not
	// exercise; non-nil placeholders satisfy the constructor.
	return NewLotAdminHandler(engine, repository.NewLotRepo(nil), repository.NewSpotRepo(nil))
}

func TestCreateLotHandler(t *testing.T) {
	engine := &fakeLotAdmin{createLot: &model.Lot{
		ID: 3, Name: "Central", Address: "1 Main St", PinCode: "560001",
		PriceCentsPerHour: 1000, NumberOfSpots: 4,
	}}
	h := newAdminHandler(engine)

	body := `{"name":"Central","address":"1 Main St","pin_code":"560001","price_cents_per_hour":1000,"number_of_spots":4}`
	c, rec := newCtx(http.MethodPost, "/v1/admin/lots", body)
	if err := h.CreateLot(c); err != nil {
		t.Fatalf("CreateLot: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if engine.gotCreate.NumberOfSpots != 4 || engine.gotCreate.PriceCentsPerHour != 1000 {
		t.Fatalf("engine params = %+v", engine.gotCreate)
	}
	var out lotResp
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != 3 || out.Name != "Central" {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestCreateLotRejectsInvalidInput(t *testing.T) {
	h := newAdminHandler(&fakeLotAdmin{createErr: service.ErrInvalidInput})
	c, rec := newCtx(http.MethodPost, "/v1/admin/lots", `{"name":""}`)
	if err := h.CreateLot(c); err != nil {
		t.Fatalf("CreateLot: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateLotPartialBody(t *testing.T) {
	engine := &fakeLotAdmin{updateLot: &model.Lot{
		ID: 5, Name: "Central", Address: "1 Main St", PinCode: "560001",
		PriceCentsPerHour: 1200, NumberOfSpots: 20,
	}}
	h := newAdminHandler(engine)

	c, rec := newCtx(http.MethodPut, "/v1/admin/lots/5", `{"price_cents_per_hour":1200}`)
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := h.UpdateLot(c); err != nil {
		t.Fatalf("UpdateLot: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if engine.gotUpdate.Name != nil || engine.gotUpdate.PriceCentsPerHour == nil {
		t.Fatalf("partial update params = %+v", engine.gotUpdate)
	}
	if *engine.gotUpdate.PriceCentsPerHour != 1200 {
		t.Fatalf("price param = %d", *engine.gotUpdate.PriceCentsPerHour)
	}
}

func TestDeleteLotHandler(t *testing.T) {
	engine := &fakeLotAdmin{}
	h := newAdminHandler(engine)

	c, rec := newCtx(http.MethodDelete, "/v1/admin/lots/5", "")
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := h.DeleteLot(c); err != nil {
		t.Fatalf("DeleteLot: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if engine.gotDelete != 5 {
		t.Fatalf("deleted lot %d, want 5", engine.gotDelete)
	}
}

func TestDeleteLotOccupiedConflict(t *testing.T) {
	h := newAdminHandler(&fakeLotAdmin{deleteErr: service.ErrLotOccupied})
	c, rec := newCtx(http.MethodDelete, "/v1/admin/lots/5", "")
	c.SetParamNames("id")
	c.SetParamValues("5")
	if err := h.DeleteLot(c); err != nil {
		t.Fatalf("DeleteLot: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestLotIDParamValidation(t *testing.T) {
	h := newAdminHandler(&fakeLotAdmin{})
	for _, bad := range []string{"", "abc", "0", "-1"} {
		c, rec := newCtx(http.MethodDelete, "/v1/admin/lots/"+bad, "")
		c.SetParamNames("id")
		c.SetParamValues(bad)
		if err := h.DeleteLot(c); err != nil {
			t.Fatalf("DeleteLot(%q): %v", bad, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("id %q: status = %d, want 400", bad, rec.Code)
		}
	}
}
