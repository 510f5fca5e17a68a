package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/cinemaxhq/reservation-service/internal/domain"
	"github.com/cinemaxhq/reservation-service/internal/mailer"
	"github.com/cinemaxhq/reservation-service/internal/mocks"
	appvalidator "github.com/cinemaxhq/reservation-service/internal/validator"
)

// cmpDecimals compares decimals by value, since a JSON round-trip may change
// their internal exponent.
var cmpDecimals = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

type testDeps struct {
	userRepo    *mocks.MockUserRepo
	seatRepo    *mocks.MockSeatRepo
	bookingRepo *mocks.MockBookingRepo
	holdStore   *mocks.MockHoldStore
	payment     *mocks.MockPaymentProvider
	publisher   *mocks.MockEventPublisher
	mailer      *mailer.MockMailer
}

func newTestDeps() *testDeps {
	return &testDeps{
		userRepo:    &mocks.MockUserRepo{},
		seatRepo:    &mocks.MockSeatRepo{},
		bookingRepo: &mocks.MockBookingRepo{},
		holdStore: &mocks.MockHoldStore{
			SaveFunc: func(ctx context.Context, hold *domain.Hold) error { return nil },
			GetFunc: func(ctx context.Context, holdID string) (*domain.Hold, error) {
				return nil, domain.ErrRecordNotFound
			},
			DeleteFunc:     func(ctx context.Context, hold *domain.Hold) error { return nil },
			ScanActiveFunc: func(ctx context.Context) ([]domain.Hold, error) { return nil, nil },
		},
		payment:   &mocks.MockPaymentProvider{},
		publisher: &mocks.MockEventPublisher{},
		mailer:    &mailer.MockMailer{},
	}
}

func newTestApplication(deps *testDeps) *Application {
	cfg := Config{Env: "test"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewApp(
		cfg,
		logger,
		nil,
		nil,
		appvalidator.NewValidator(),
		deps.mailer,
		scs.New(),
		deps.userRepo,
		deps.seatRepo,
		deps.bookingRepo,
		deps.holdStore,
		deps.payment,
		deps.publisher,
	)
}

// setupTestSession loads a fresh session into the request context and logs
// the given user in.
func setupTestSession(t *testing.T, app *Application, r *http.Request, userId int) *http.Request {
	t.Helper()

	ctx, err := app.sessionManager.Load(r.Context(), "session")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}

	app.sessionManager.Put(ctx, string(SessionKeyUserId), userId)

	return r.WithContext(ctx)
}

// withUrlParams injects chi route parameters so handlers can be exercised
// without a router.
func withUrlParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}

	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantErrMessage string) {
	t.Helper()

	if wantStatus >= 200 && wantStatus < 300 {
		return
	}

	switch wantStatus {
	case http.StatusUnprocessableEntity:
		if wantErrMessage == "" {
			return
		}

		var validationResp ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("failed to decode validation error response: %v", err)
		}

		if validationResp.Message == wantErrMessage {
			return
		}

		for _, vErr := range validationResp.ValidationErrors {
			if vErr.Issue == wantErrMessage {
				return
			}
		}

		t.Errorf("expected error message %q not found in response", wantErrMessage)

	default:
		var errorResp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}

		if wantErrMessage != "" && errorResp.Message != wantErrMessage {
			t.Errorf("error message = %v, want %v", errorResp.Message, wantErrMessage)
		}
	}
}
