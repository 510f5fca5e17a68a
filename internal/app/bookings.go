package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type CreateBookingRequest struct {
	HoldId        string `json:"holdId" validate:"required,uuid4"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=card wallet"`
	PaymentToken  string `json:"paymentToken" validate:"required"`
}

type BookingResponse struct {
	Reference     string          `json:"reference"`
	ShowtimeId    int             `json:"showtimeId"`
	ShowtimeStart time.Time       `json:"showtimeStart"`
	Seats         []BookingSeat   `json:"seats"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type BookingSeat struct {
	Id     int             `json:"id"`
	Row    int             `json:"row"`
	Column int             `json:"column"`
	Type   string          `json:"type"`
	Price  decimal.Decimal `json:"price"`
}

type BookingSummaryResponse struct {
	Reference     string          `json:"reference"`
	MovieTitle    string          `json:"movieTitle"`
	TheaterName   string          `json:"theaterName"`
	HallName      string          `json:"hallName"`
	ShowtimeStart time.Time       `json:"showtimeStart"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (app *Application) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest

	err := app.readJSON(w, r, &req)
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

	userID := app.contextGetUserId(r)

	hold, ok := app.holds.Lookup(req.HoldId)
	if !ok || hold.UserID != userID {
		app.goneResponse(w, r, ErrHoldGone)
		return
	}

	confirmation, err := app.paymentProvider.Charge(r.Context(), hold.TotalPrice, "USD", req.PaymentMethod, req.PaymentToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentFailed):
			app.paymentRequiredResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	booking, err := app.ledger.Confirm(r.Context(), req.HoldId, userID, confirmation)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrHoldExpired):
			// The charge went through but the seats are gone. Surface the
			// conflict to the client; the refund is an operator concern.
			app.logError(r, fmt.Errorf("payment %s captured for expired hold %s", confirmation.ProviderRef, req.HoldId))
			app.goneResponse(w, r, ErrHoldGone)
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.background(func() {
		app.sendBookingMail(booking, "booking_confirmed.tmpl")
	})

	err = app.writeJSON(w, http.StatusCreated, envelope{"booking": newBookingResponse(booking)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	if err := app.validator.Var(reference, "required,booking_reference"); err != nil {
		app.badRequestResponse(w, r, errors.New("invalid reference parameter"))
		return
	}

	userID := app.contextGetUserId(r)

	booking, err := app.ledger.Cancel(r.Context(), reference, userID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrBookingNotCancellable):
			app.unprocessableEntityResponse(w, r, "only confirmed bookings can be cancelled")
		case errors.Is(err, domain.ErrCancellationWindowClosed):
			app.unprocessableEntityResponse(w, r, "the cancellation window for this booking has closed")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.background(func() {
		app.sendBookingMail(booking, "booking_cancelled.tmpl")
	})

	err = app.writeJSON(w, http.StatusOK, envelope{"booking": newBookingResponse(booking)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	if err := app.validator.Var(reference, "required,booking_reference"); err != nil {
		app.badRequestResponse(w, r, errors.New("invalid reference parameter"))
		return
	}

	booking, err := app.bookingRepo.GetByReference(r.Context(), reference)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if booking.UserID != app.contextGetUserId(r) {
		app.notFoundResponse(w, r)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"booking": newBookingResponse(booking)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetUserBookingsHandler(w http.ResponseWriter, r *http.Request) {
	page, err := app.readIntQuery(r, "page", DefaultPage)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	pageSize, err := app.readIntQuery(r, "pageSize", DefaultPageSize)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		app.badRequestResponse(w, r, errors.New("page or pageSize out of range"))
		return
	}

	pagination := domain.Pagination{Page: page, PageSize: pageSize}

	summaries, metadata, err := app.bookingRepo.GetSummariesByUserID(r.Context(), app.contextGetUserId(r), pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	bookings := make([]BookingSummaryResponse, len(summaries))
	for i, summary := range summaries {
		bookings[i] = BookingSummaryResponse{
			Reference:     summary.Reference,
			MovieTitle:    summary.MovieTitle,
			TheaterName:   summary.TheaterName,
			HallName:      summary.HallName,
			ShowtimeStart: summary.ShowtimeStart,
			TotalAmount:   summary.TotalAmount,
			Status:        string(summary.Status),
			CreatedAt:     summary.CreatedAt,
		}
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"bookings": bookings, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) sendBookingMail(booking *domain.Booking, templateFile string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := app.userRepo.GetById(ctx, booking.UserID)
	if err != nil {
		app.logger.Error("failed to load user for booking mail", "reference", booking.Reference, "error", err)
		return
	}

	movieTitle := ""
	if showtime, err := app.seatRepo.GetSeatsByShowtime(ctx, booking.ShowtimeID); err == nil {
		movieTitle = showtime.MovieTitle
	}

	seats := make([]string, len(booking.Seats))
	for i, seat := range booking.Seats {
		seats[i] = fmt.Sprintf("Row %d Seat %d (%s)", seat.Row, seat.Col, seat.Type)
	}

	data := map[string]any{
		"Name":       user.Name,
		"Reference":  booking.Reference,
		"MovieTitle": movieTitle,
		"Showtime":   booking.ShowtimeStart.Format("Mon, 02 Jan 2006 15:04"),
		"Seats":      strings.Join(seats, ", "),
		"Total":      booking.TotalAmount.StringFixed(2),
	}

	err = app.mailer.Send(user.Email, templateFile, data)
	if err != nil {
		app.logger.Error("failed to send booking mail", "reference", booking.Reference, "error", err)
	}
}

func newBookingResponse(booking *domain.Booking) BookingResponse {
	seats := make([]BookingSeat, len(booking.Seats))
	for i, seat := range booking.Seats {
		seats[i] = BookingSeat{
			Id:     seat.SeatID,
			Row:    seat.Row,
			Column: seat.Col,
			Type:   seat.Type,
			Price:  seat.Price,
		}
	}

	return BookingResponse{
		Reference:     booking.Reference,
		ShowtimeId:    booking.ShowtimeID,
		ShowtimeStart: booking.ShowtimeStart,
		Seats:         seats,
		TotalAmount:   booking.TotalAmount,
		Status:        string(booking.Status),
		PaymentStatus: string(booking.PaymentStatus),
		CreatedAt:     booking.CreatedAt,
	}
}
