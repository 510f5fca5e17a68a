package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

type SeatMapResponse struct {
	ShowtimeId  int             `json:"showtimeId"`
	MovieTitle  string          `json:"movieTitle"`
	TheaterName string          `json:"theaterName"`
	HallName    string          `json:"hallName"`
	StartTime   time.Time       `json:"startTime"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Seats       []SeatResponse  `json:"seats"`
}

type SeatResponse struct {
	Id     int             `json:"id"`
	Row    int             `json:"row"`
	Column int             `json:"column"`
	Type   string          `json:"type"`
	Price  decimal.Decimal `json:"price"`
	Status string          `json:"status"`
}

// GetSeatMapHandler returns the seat catalog of a showtime merged with the
// live availability state of every seat.
func (app *Application) GetSeatMapHandler(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readIntParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	showtime, err := app.seatRepo.GetSeatsByShowtime(r.Context(), showtimeID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	states, err := app.seatMap.States(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	seats := make([]SeatResponse, len(showtime.Seats))
	for i, seat := range showtime.Seats {
		state, ok := states[seat.ID]
		if !ok {
			state = domain.SeatFree
		}

		seats[i] = SeatResponse{
			Id:     seat.ID,
			Row:    seat.Row,
			Column: seat.Col,
			Type:   seat.Type,
			Price:  showtime.BasePrice.Add(seat.ExtraPrice),
			Status: string(state),
		}
	}

	resp := SeatMapResponse{
		ShowtimeId:  showtime.ShowtimeID,
		MovieTitle:  showtime.MovieTitle,
		TheaterName: showtime.TheaterName,
		HallName:    showtime.HallName,
		StartTime:   showtime.StartTime,
		BasePrice:   showtime.BasePrice,
		Seats:       seats,
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"seatMap": resp}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
