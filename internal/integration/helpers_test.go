package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var keysToIgnore = map[string]struct{}{
	"timestamp":     {},
	"requestId":     {},
	"createdAt":     {},
	"expiresAt":     {},
	"holdId":        {},
	"reference":     {},
	"startTime":     {},
	"showtimeStart": {},
	"version":       {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []*http.Cookie) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	return req, nil
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indeterministic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		_, ok := keysToIgnore[k]
		return ok
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func cleanMap(m map[string]any) {
	for k := range m {
		if _, ok := keysToIgnore[k]; ok {
			delete(m, k)
			continue
		}
		switch v := m[k].(type) {
		case map[string]any:
			cleanMap(v)
		case []any:
			for _, item := range v {
				if nested, ok := item.(map[string]any); ok {
					cleanMap(nested)
				}
			}
		}
	}
}

// seedCinema inserts a theater, hall, four seats, a movie and a showtime
// starting 24 hours from now. Each suite runs against a freshly migrated
// database, so all rows get IDs starting from 1.
func seedCinema(t testing.TB, app *TestApp) {
	t.Helper()

	ctx := context.Background()

	_, err := app.DB.Exec(ctx, `
		INSERT INTO theaters (name, address) VALUES ('CineMax Downtown', '1 Main St, Springfield');
		INSERT INTO halls (theater_id, name) VALUES (1, 'Hall 1');
		INSERT INTO seats (hall_id, seat_row, seat_col, seat_type, extra_price) VALUES
			(1, 1, 1, 'standard', 0),
			(1, 1, 2, 'standard', 0),
			(1, 2, 1, 'vip', 5.00),
			(1, 2, 2, 'vip', 5.00);
		INSERT INTO movies (title, runtime_minutes) VALUES ('The Long Goodbye', 112);
	`)
	require.NoError(t, err)

	_, err = app.DB.Exec(ctx, `
		INSERT INTO showtimes (movie_id, hall_id, start_time, base_price)
		VALUES (1, 1, $1, 12.50)
	`, time.Now().Add(24*time.Hour).UTC())
	require.NoError(t, err)
}

// registerAndLogin creates a user through the API and returns the session
// cookie from a successful login.
func registerAndLogin(t testing.TB, app *TestApp, name, email, password string) []*http.Cookie {
	t.Helper()

	registerBody := strings.NewReader(`{
		"name": "` + name + `",
		"email": "` + email + `",
		"password": "` + password + `"
	}`)

	req, err := prepareRequest("POST", "/users", registerBody, nil, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.App.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, "register failed: %s", rec.Body.String())

	loginBody := strings.NewReader(`{
		"email": "` + email + `",
		"password": "` + password + `"
	}`)

	req, err = prepareRequest("POST", "/sessions", loginBody, nil, nil)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	app.App.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "login should set a session cookie")

	return cookies
}

// createHold places a hold on the given seats and returns its ID.
func createHold(t testing.TB, app *TestApp, cookies []*http.Cookie, showtimeId int, seatIds []int) string {
	t.Helper()

	body, err := json.Marshal(map[string]any{"seatIdList": seatIds})
	require.NoError(t, err)

	req, err := prepareRequest("POST", holdsURL(showtimeId), strings.NewReader(string(body)), nil, cookies)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.App.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, "hold creation failed: %s", rec.Body.String())

	var resp struct {
		Hold struct {
			HoldId string `json:"holdId"`
		} `json:"hold"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Hold.HoldId)

	return resp.Hold.HoldId
}

// createBooking confirms the given hold with the mock provider and returns
// the booking reference.
func createBooking(t testing.TB, app *TestApp, cookies []*http.Cookie, holdId string) string {
	t.Helper()

	body := strings.NewReader(`{
		"holdId": "` + holdId + `",
		"paymentMethod": "card",
		"paymentToken": "tok_visa"
	}`)

	req, err := prepareRequest("POST", "/bookings", body, nil, cookies)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.App.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, "booking creation failed: %s", rec.Body.String())

	var resp struct {
		Booking struct {
			Reference string `json:"reference"`
		} `json:"booking"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Booking.Reference)

	return resp.Booking.Reference
}

func holdsURL(showtimeId int) string {
	return "/showtimes/" + strconv.Itoa(showtimeId) + "/holds"
}

func seatMapURL(showtimeId int) string {
	return "/showtimes/" + strconv.Itoa(showtimeId) + "/seats"
}
