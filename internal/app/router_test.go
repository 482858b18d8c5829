package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"carpool/internal/config"
	"carpool/internal/handler"
	"carpool/internal/middleware"
	"carpool/internal/service"
	"carpool/internal/tests"
)

const (
	testSecret = "testsecret"
	testCookie = "token"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// buildTestRouter wires the full router over in-memory repositories.
func buildTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	trips := tests.NewMockTripRepository()
	confirmations := tests.NewMockConfirmationRepository()
	ratings := tests.NewMockRatingRepository()
	users := tests.NewMockUserRepository()
	cache := tests.NewMockRatingCache()

	lifecycle := service.NewLifecycle(trips, confirmations, service.LifecycleConfig{
		Location:    time.UTC,
		MaxAttempts: 5,
		Now:         func() time.Time { return time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC) },
	}, logger)
	notifications := service.NewNotificationService(tests.NewMockPublisher(), logger)

	return NewRouter(RouterDeps{
		TripHandler:         handler.NewTripHandler(service.NewTripService(lifecycle, trips, confirmations, ratings, notifications, logger)),
		RequestHandler:      handler.NewRequestHandler(service.NewRequestService(lifecycle, trips, notifications, logger)),
		ConfirmationHandler: handler.NewConfirmationHandler(service.NewConfirmationService(lifecycle, confirmations, cache, notifications, logger)),
		RatingHandler:       handler.NewRatingHandler(service.NewRatingService(lifecycle, ratings, confirmations, users, cache, notifications, logger)),
		Auth:                config.AuthConfig{JWTSecret: testSecret, CookieName: testCookie},
		Logger:              logger,
	})
}

// signTestToken returns an HS256 access token for userID.
func signTestToken(t *testing.T, secret, userID string, expires time.Time) string {
	t.Helper()

	claims := middleware.Claims{
		User: middleware.TokenUser{ID: userID, Email: userID + "@campus.test", Role: "student"},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// call performs a request as userID. An empty userID sends no token.
func call(t *testing.T, router *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, testSecret, userID, time.Now().Add(time.Hour)))
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}

// ──────────────────────────────────────────────
// 1. AUTHENTICATION
// ──────────────────────────────────────────────

func TestRouter_Authentication(t *testing.T) {
	t.Parallel()

	router := buildTestRouter(t)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    int
		wantMsg string
	}{
		{
			name:    "missing token",
			prepare: func(r *http.Request) {},
			want:    http.StatusUnauthorized,
			wantMsg: "access denied, token missing",
		},
		{
			name: "wrong secret",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signTestToken(t, "other", "u1", time.Now().Add(time.Hour)))
			},
			want:    http.StatusUnauthorized,
			wantMsg: "invalid token",
		},
		{
			name: "expired token",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signTestToken(t, testSecret, "u1", time.Now().Add(-time.Minute)))
			},
			want:    http.StatusUnauthorized,
			wantMsg: "session expired",
		},
		{
			name: "cookie token",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: testCookie, Value: signTestToken(t, testSecret, "u1", time.Now().Add(time.Hour))})
			},
			want: http.StatusOK,
		},
		{
			name: "bearer token",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signTestToken(t, testSecret, "u1", time.Now().Add(time.Hour)))
			},
			want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/trips/my-trips", nil)
		tt.prepare(req)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, resp.Code)
			continue
		}
		if tt.wantMsg != "" && !strings.Contains(resp.Body.String(), tt.wantMsg) {
			t.Errorf("%s: expected message %q, got %s", tt.name, tt.wantMsg, resp.Body.String())
		}
	}
}

func TestRouter_HealthIsPublic(t *testing.T) {
	t.Parallel()

	router := buildTestRouter(t)
	resp := call(t, router, http.MethodGet, "/health", "", nil)
	expectStatus(t, resp, http.StatusOK)

	if resp.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

// ──────────────────────────────────────────────
// 2. FULL TRIP FLOW
// ──────────────────────────────────────────────

func TestRouter_TripFlow(t *testing.T) {
	t.Parallel()

	router := buildTestRouter(t)

	// Driver offers a one-seat trip.
	resp := call(t, router, http.MethodPost, "/api/trips", "driver-1", handler.CreateTripRequest{
		Departure: "Campus Nord", Arrival: "Gare Centrale", Date: "2026-03-12",
		Time: "08:00", ArrivalTime: "08:45", Distance: "12 km", Duration: "45 min",
		Vehicle: "Tesla Model 3 electric", Seats: 1,
	})
	expectStatus(t, resp, http.StatusCreated)
	var trip handler.TripResponse
	decode(t, resp, &trip)
	if trip.Status != "active" || trip.AvailableSeats != 1 || !trip.IsElectric || trip.Requests == nil {
		t.Fatalf("unexpected trip: %+v", trip)
	}
	base := "/api/trips/" + trip.ID

	resp = call(t, router, http.MethodGet, "/api/trips", "p1", nil)
	expectStatus(t, resp, http.StatusOK)
	var all []handler.TripResponse
	decode(t, resp, &all)
	if len(all) != 1 || all[0].ID != trip.ID {
		t.Fatalf("expected the new trip in the listing, got %+v", all)
	}

	// Passenger finds and applies.
	resp = call(t, router, http.MethodGet, "/api/trips/search?departure=Campus+Nord&arrival=Gare+Centrale&date=2026-03-12", "p1", nil)
	expectStatus(t, resp, http.StatusOK)
	var found []handler.TripResponse
	decode(t, resp, &found)
	if len(found) != 1 {
		t.Fatalf("expected 1 search result, got %d", len(found))
	}

	resp = call(t, router, http.MethodPost, base+"/requests", "p1", nil)
	expectStatus(t, resp, http.StatusCreated)
	var applied handler.PassengerRequestResponse
	decode(t, resp, &applied)
	if applied.Request.Status != "pending" {
		t.Fatalf("expected pending request, got %s", applied.Request.Status)
	}

	expectStatus(t, call(t, router, http.MethodPost, base+"/requests", "p1", nil), http.StatusBadRequest)
	expectStatus(t, call(t, router, http.MethodPost, base+"/requests", "driver-1", nil), http.StatusBadRequest)

	// Only the driver decides.
	decide := base + "/requests/" + applied.Request.ID
	expectStatus(t, call(t, router, http.MethodPut, decide, "p1", gin.H{"status": "accepted"}), http.StatusForbidden)
	expectStatus(t, call(t, router, http.MethodPut, decide, "driver-1", gin.H{"status": "maybe"}), http.StatusBadRequest)
	expectStatus(t, call(t, router, http.MethodPut, base+"/requests/unknown", "driver-1", gin.H{"status": "accepted"}), http.StatusNotFound)

	resp = call(t, router, http.MethodPut, decide, "driver-1", gin.H{"status": "accepted"})
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &trip)
	if trip.AvailableSeats != 0 || trip.Status != "completed" || trip.CompletionReason != "seats_exhausted" {
		t.Fatalf("expected full trip, got seats=%d status=%s reason=%s", trip.AvailableSeats, trip.Status, trip.CompletionReason)
	}

	// Accepting twice changes nothing.
	resp = call(t, router, http.MethodPut, decide, "driver-1", gin.H{"status": "accept"})
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &trip)
	if trip.AvailableSeats != 0 {
		t.Fatalf("expected seats unchanged, got %d", trip.AvailableSeats)
	}

	resp = call(t, router, http.MethodPost, base+"/requests", "p2", nil)
	expectStatus(t, resp, http.StatusBadRequest)
	if !strings.Contains(resp.Body.String(), "no seats available") {
		t.Errorf("expected no seats message, got %s", resp.Body.String())
	}

	// Confirmations close the trip.
	expectStatus(t, call(t, router, http.MethodPost, base+"/confirm-driver", "p1", nil), http.StatusForbidden)
	expectStatus(t, call(t, router, http.MethodPost, base+"/confirm-passenger", "p2", nil), http.StatusForbidden)

	resp = call(t, router, http.MethodPost, base+"/confirm-driver", "driver-1", nil)
	expectStatus(t, resp, http.StatusOK)
	var confirmed handler.ConfirmResponse
	decode(t, resp, &confirmed)
	if confirmed.TripCompleted || !confirmed.Confirmation.IsConfirmed {
		t.Fatalf("unexpected confirmation: %+v", confirmed)
	}

	resp = call(t, router, http.MethodPost, base+"/confirm-passenger", "p1", gin.H{"is_confirmed": true})
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &confirmed)
	if !confirmed.TripCompleted || confirmed.TripStatus != "completed" {
		t.Fatalf("expected trip to close, got %+v", confirmed)
	}

	expectStatus(t, call(t, router, http.MethodPost, base+"/confirm-passenger", "p1", nil), http.StatusBadRequest)

	// Ratings.
	resp = call(t, router, http.MethodPost, base+"/rate-driver", "p1", gin.H{"rating": 4})
	expectStatus(t, resp, http.StatusOK)
	var rated handler.RateResponse
	decode(t, resp, &rated)
	if rated.AverageRating != 4 || rated.Rating.ToUserID != "driver-1" {
		t.Fatalf("unexpected rating response: %+v", rated)
	}
	expectStatus(t, call(t, router, http.MethodPost, base+"/rate-driver", "p1", gin.H{"rating": 1}), http.StatusBadRequest)
	expectStatus(t, call(t, router, http.MethodPost, base+"/rate-passenger", "driver-1", gin.H{"passenger_id": "driver-1", "rating": 3}), http.StatusBadRequest)
	expectStatus(t, call(t, router, http.MethodPost, base+"/rate-passenger", "driver-1", gin.H{"passenger_id": "p1", "rating": 9}), http.StatusBadRequest)
	expectStatus(t, call(t, router, http.MethodPost, base+"/rate-passenger", "driver-1", gin.H{"passenger_id": "p1", "rating": 5}), http.StatusOK)

	resp = call(t, router, http.MethodGet, "/api/users/driver-1/ratings", "p2", nil)
	expectStatus(t, resp, http.StatusOK)
	var summary handler.UserRatingsResponse
	decode(t, resp, &summary)
	if summary.AsDriver.Count != 1 || summary.AsDriver.Average != 4 || summary.AsDriver.ConfirmedTrips != 1 {
		t.Errorf("unexpected driver stats: %+v", summary.AsDriver)
	}

	// A trip closed by confirmation can no longer be deleted.
	expectStatus(t, call(t, router, http.MethodDelete, base, "driver-1", nil), http.StatusBadRequest)
}

// ──────────────────────────────────────────────
// 3. RESPONSE SHAPES
// ──────────────────────────────────────────────

func TestRouter_EmptyListsRenderAsArrays(t *testing.T) {
	t.Parallel()

	router := buildTestRouter(t)

	for _, path := range []string{
		"/api/trips",
		"/api/trips/my-trips",
		"/api/users/requests",
		"/api/trips/search?departure=A&arrival=B&date=2026-03-12",
	} {
		resp := call(t, router, http.MethodGet, path, "u1", nil)
		expectStatus(t, resp, http.StatusOK)
		if body := strings.TrimSpace(resp.Body.String()); body != "[]" {
			t.Errorf("%s: expected [], got %s", path, body)
		}
	}

	resp := call(t, router, http.MethodGet, "/api/users/u1/ratings", "u1", nil)
	expectStatus(t, resp, http.StatusOK)
	if !strings.Contains(resp.Body.String(), `"ratings":[]`) {
		t.Errorf("expected empty ratings array, got %s", resp.Body.String())
	}
}

func TestRouter_UnknownTripIsNotFound(t *testing.T) {
	t.Parallel()

	router := buildTestRouter(t)

	expectStatus(t, call(t, router, http.MethodGet, "/api/trips/missing", "u1", nil), http.StatusNotFound)
	expectStatus(t, call(t, router, http.MethodPost, "/api/trips/missing/requests", "u1", nil), http.StatusNotFound)
	expectStatus(t, call(t, router, http.MethodPost, "/api/trips/missing/confirm-driver", "u1", nil), http.StatusNotFound)
}

func TestRouter_CreateTripValidation(t *testing.T) {
	t.Parallel()

	router := buildTestRouter(t)

	resp := call(t, router, http.MethodPost, "/api/trips", "driver-1", handler.CreateTripRequest{
		Departure: "Campus Nord", Date: "2026-03-12", Seats: 2,
	})
	expectStatus(t, resp, http.StatusBadRequest)
	if !strings.Contains(resp.Body.String(), "missing required fields") {
		t.Errorf("unexpected body: %s", resp.Body.String())
	}
}
