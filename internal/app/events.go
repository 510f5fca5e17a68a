package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

const heartbeatInterval = 30 * time.Second

// ShowtimeEventsHandler streams seat state changes for one showtime as
// server-sent events. Clients that fall behind have events dropped and are
// expected to refetch the seat map to resynchronize.
func (app *Application) ShowtimeEventsHandler(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readIntParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if _, err := app.seatMap.States(r.Context(), showtimeID); err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverErrorResponse(w, r, errors.New("streaming unsupported by connection"))
		return
	}

	events := app.fanout.Subscribe(showtimeID)
	defer app.fanout.Unsubscribe(showtimeID, events)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	logger := app.contextGetLogger(r)

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case event, open := <-events:
			if !open {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("failed to marshal seat event", "error", err)
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}
