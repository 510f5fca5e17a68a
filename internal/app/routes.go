package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(app.requestLogger)
	r.Use(app.recoverPanic)
	r.Use(otelchi.Middleware("reservation-api", otelchi.WithChiRoutes(r)))
	r.Use(app.sessionManager.LoadAndSave)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		app.notFoundResponse(w, r)
	})

	r.Get("/health", app.GetHealthHandler)

	r.Post("/users", app.RegisterUserHandler)
	r.Post("/sessions", app.LoginHandler)
	r.Delete("/sessions", app.LogoutHandler)

	r.Route("/showtimes/{showtimeId}", func(r chi.Router) {
		r.Get("/seats", app.GetSeatMapHandler)
		r.Get("/events", app.ShowtimeEventsHandler)
		r.With(app.requireAuthentication).Post("/holds", app.CreateHoldHandler)
	})

	r.With(app.requireAuthentication).Delete("/holds/{holdId}", app.ReleaseHoldHandler)

	r.Route("/bookings", func(r chi.Router) {
		r.Use(app.requireAuthentication)

		r.Post("/", app.CreateBookingHandler)
		r.Get("/", app.GetUserBookingsHandler)
		r.Get("/{reference}", app.GetBookingHandler)
		r.Delete("/{reference}", app.CancelBookingHandler)
	})

	return r
}
