package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

type CreateHoldRequest struct {
	SeatIdList []int `json:"seatIdList" validate:"required,min=1,max=8,unique,dive,gt=0"`
	TtlSeconds int   `json:"ttlSeconds" validate:"omitempty,min=60,max=1800"`
}

type HoldResponse struct {
	HoldId     string          `json:"holdId"`
	ShowtimeId int             `json:"showtimeId"`
	Seats      []HoldSeat      `json:"seats"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

type HoldSeat struct {
	Id     int             `json:"id"`
	Row    int             `json:"row"`
	Column int             `json:"column"`
	Type   string          `json:"type"`
	Price  decimal.Decimal `json:"price"`
}

func (app *Application) CreateHoldHandler(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readIntParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var req CreateHoldRequest

	err = app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.validator.Struct(req); err != nil {
		var validationErrors validatorv10.ValidationErrors
		if errors.As(err, &validationErrors) {
			app.failedValidationResponse(w, r, validationErrors)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	ttl := app.config.HoldTTL
	if req.TtlSeconds > 0 {
		ttl = time.Duration(req.TtlSeconds) * time.Second
	}

	userID := app.contextGetUserId(r)

	hold, err := app.holds.CreateHold(r.Context(), showtimeID, userID, req.SeatIdList, ttl)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSeatUnavailable):
			app.conflictResponse(w, r, ErrSeatConflict)
		case errors.Is(err, domain.ErrSeatNotFound), errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"hold": newHoldResponse(hold)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ReleaseHoldHandler(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdId")

	if err := app.validator.Var(holdID, "required,uuid4"); err != nil {
		app.badRequestResponse(w, r, errors.New("invalid holdId parameter"))
		return
	}

	userID := app.contextGetUserId(r)

	// A hold owned by someone else is indistinguishable from a missing one.
	if hold, ok := app.holds.Lookup(holdID); ok && hold.UserID != userID {
		app.notFoundResponse(w, r)
		return
	}

	err := app.holds.ReleaseHold(r.Context(), holdID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func newHoldResponse(hold *domain.Hold) HoldResponse {
	seats := make([]HoldSeat, len(hold.Seats))
	for i, seat := range hold.Seats {
		seats[i] = HoldSeat{
			Id:     seat.SeatID,
			Row:    seat.Row,
			Column: seat.Col,
			Type:   seat.Type,
			Price:  seat.Price,
		}
	}

	return HoldResponse{
		HoldId:     hold.ID,
		ShowtimeId: hold.ShowtimeID,
		Seats:      seats,
		TotalPrice: hold.TotalPrice,
		ExpiresAt:  hold.ExpiresAt,
	}
}
