package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ridepool/backend/internal/events"
	"ridepool/backend/internal/repository/memory"
	"ridepool/backend/internal/service"
)

const testJWTSecret = "router-test-secret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	logger := zap.NewNop()
	pub := events.NopPublisher{}

	rides := service.NewRideService(store, pub, logger)
	joins := service.NewJoinService(store, pub, logger)
	chat := service.NewChatService(store, pub, logger)

	r := gin.New()
	RegisterRoutes(r, Handlers{
		Auth:  NewAuthHandler(store.Users(), testJWTSecret, time.Hour, logger),
		Rides: NewRideHandler(rides, logger),
		Joins: NewJoinHandler(joins, logger),
		Chat:  NewChatHandler(chat, logger),
	}, testJWTSecret)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func signup(t *testing.T, r *gin.Engine, name string) string {
	t.Helper()
	rec, env := doJSON(t, r, http.MethodPost, "/auth/signup", "", gin.H{
		"name":     name,
		"email":    name + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func rideBody() gin.H {
	return gin.H{
		"from":       "Campus North",
		"to":         "Central Station",
		"time_start": time.Now().Add(time.Hour).Format(time.RFC3339),
		"time_end":   time.Now().Add(2 * time.Hour).Format(time.RFC3339),
		"seats":      2,
	}
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	rec, _ := doJSON(t, r, http.MethodGet, "/rides", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet, "/rides", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupAndLogin(t *testing.T) {
	r := newTestRouter(t)
	signup(t, r, "ada")

	// Duplicate email is refused.
	rec, _ := doJSON(t, r, http.MethodPost, "/auth/signup", "", gin.H{
		"name":     "ada again",
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "ada@example.com",
		"password": "wrong-horse",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", env.Message)
}

// TestRideJoinChatFlow walks the happy path end to end over HTTP:
// post a ride, request to join, accept, then talk in the thread.
func TestRideJoinChatFlow(t *testing.T) {
	r := newTestRouter(t)
	ownerToken := signup(t, r, "owner")
	riderToken := signup(t, r, "rider")

	rec, env := doJSON(t, r, http.MethodPost, "/rides", ownerToken, rideBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Ride struct {
			ID string `json:"id"`
		} `json:"ride"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	rideID := created.Ride.ID

	// The rider sees it in the open listing; the owner does not.
	rec, env = doJSON(t, r, http.MethodGet, "/rides", riderToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Rides []json.RawMessage `json:"rides"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.Len(t, listing.Rides, 1)

	rec, env = doJSON(t, r, http.MethodGet, "/rides", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.Empty(t, listing.Rides)

	rec, env = doJSON(t, r, http.MethodPost, "/rides/"+rideID+"/join", riderToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var joined struct {
		JoinRequest struct {
			ID string `json:"id"`
		} `json:"join_request"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	joinID := joined.JoinRequest.ID

	// Asking again is not an error, just not a new request.
	rec, env = doJSON(t, r, http.MethodPost, "/rides/"+rideID+"/join", riderToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "you have already requested to join this ride", env.Message)

	rec, _ = doJSON(t, r, http.MethodPost, "/join/"+joinID+"/accept", riderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/join/"+joinID+"/accept", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, r, http.MethodPost, "/join/"+joinID+"/messages", riderToken, gin.H{
		"message": "thanks, where do we meet?",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = doJSON(t, r, http.MethodGet, "/join/"+joinID+"/messages", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var thread struct {
		Messages []struct {
			Message  string `json:"message"`
			IsSystem bool   `json:"is_system_message"`
		} `json:"messages"`
		CanSend bool `json:"can_send_message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &thread))
	require.Len(t, thread.Messages, 2)
	assert.True(t, thread.Messages[0].IsSystem)
	assert.Equal(t, "thanks, where do we meet?", thread.Messages[1].Message)
	assert.True(t, thread.CanSend)

	// The ride is filled now; cancelling is refused.
	rec, _ = doJSON(t, r, http.MethodDelete, "/rides/"+rideID, ownerToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestJoinValidationOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	ownerToken := signup(t, r, "owner")

	rec, env := doJSON(t, r, http.MethodPost, "/rides", ownerToken, rideBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Ride struct {
			ID string `json:"id"`
		} `json:"ride"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// Joining your own ride is rejected.
	rec, env = doJSON(t, r, http.MethodPost, "/rides/"+created.Ride.ID+"/join", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cannot join your own ride", env.Message)

	// Malformed ids fail before reaching the service.
	rec, _ = doJSON(t, r, http.MethodPost, "/rides/not-a-uuid/join", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet, fmt.Sprintf("/rides/%s", "also-not-a-uuid"), ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
