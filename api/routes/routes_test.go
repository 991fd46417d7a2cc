package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArowuTest/draft-lottery-backend/internal/config"
	"github.com/ArowuTest/draft-lottery-backend/internal/handlers"
	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/realtime"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories/boltdb"
	"github.com/ArowuTest/draft-lottery-backend/internal/services"
	"github.com/ArowuTest/draft-lottery-backend/pkg/jwt"
)

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := boltdb.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub()
	go hub.Run(ctx)

	tokens := jwt.NewTokenService("routes-secret", time.Hour)
	lotteryService := services.NewLotteryService(boltdb.NewSessionRepository(db), hub, services.LotteryOptions{})
	authService := services.NewAuthService(boltdb.NewUserRepository(db), tokens)

	cfg := &config.Config{Server: config.ServerConfig{Mode: gin.TestMode}}
	router := SetupRouter(cfg, HandlerDependencies{
		AuthHandler:    handlers.NewAuthHandler(authService),
		LotteryHandler: handlers.NewLotteryHandler(lotteryService),
		LiveHandler:    handlers.NewLiveHandler(lotteryService, hub, nil),
		Tokens:         tokens,
	})
	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
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
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, name, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"displayName": name,
		"email":       email,
		"password":    "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lottery_http_requests_total")
}

func TestAuthValidation(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"displayName": "x", "email": "not-an-email", "password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.register(t, "GM", "gm@league.test")
	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"displayName": "GM", "email": "gm@league.test", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "gm@league.test", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "gm@league.test", "password": "correct-horse"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLotteryRequiresToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/lotteries", "", gin.H{"name": "x", "teamCount": 4})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLotteryLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.register(t, "Commissioner", "commish@league.test")
	witnessToken := s.register(t, "Witness", "witness@league.test")

	w := s.do(t, http.MethodPost, "/api/v1/lotteries", adminToken, gin.H{"name": "Keeper League", "teamCount": 15})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/lotteries", adminToken, gin.H{
		"name":                  "Keeper League",
		"teamCount":             6,
		"requiredVerifierCount": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var session models.LotterySession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	base := "/api/v1/lotteries/" + session.ID.Hex()

	w = s.do(t, http.MethodPut, base+"/teams/team-1", adminToken, gin.H{"name": "Hawks", "emails": []string{"gm@hawks.test"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPut, base+"/teams/team-1", witnessToken, gin.H{"name": "Owls"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPut, base+"/teams/team-1", adminToken, gin.H{"emails": []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, base+"/verification", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, base+"/drawing", adminToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, base+"/verifiers", witnessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"added":true}`, w.Body.String())

	w = s.do(t, http.MethodPost, base+"/drawing", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, base+"/allocation", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":1000,"assigned":740,"dead":260}`, w.Body.String())

	w = s.do(t, http.MethodGet, base+"/draft-order.csv", witnessToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, base+"/picks", witnessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, base+"/picks", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var drawn struct {
		Picks []models.DrawnPick `json:"picks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drawn))
	assert.Len(t, drawn.Picks, 4)

	w = s.do(t, http.MethodPost, base+"/picks/next", adminToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, base+"/draft-order", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, base+"/reveal", witnessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reveal struct {
		Sequence []models.DraftPick `json:"sequence"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reveal))
	require.Len(t, reveal.Sequence, 6)
	assert.Equal(t, 6, reveal.Sequence[0].Pick)

	w = s.do(t, http.MethodGet, base+"/draft-order.csv", witnessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 7)
	assert.Contains(t, lines[5], "N/A")

	w = s.do(t, http.MethodGet, base+"/combinations.csv", witnessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, strings.Split(strings.TrimSpace(w.Body.String()), "\n"), 1001)

	w = s.do(t, http.MethodPost, base+"/complete", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, base, witnessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var final models.LotterySession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &final))
	assert.Equal(t, models.StatusComplete, final.Status)
	assert.Empty(t, final.Combinations)
	assert.Equal(t, "Hawks", final.Teams[0].Name)

	w = s.do(t, http.MethodGet, "/api/v1/lotteries", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), session.ID.Hex())
}

func TestLotteryNotFoundAndBadID(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "GM", "gm@league.test")

	w := s.do(t, http.MethodGet, "/api/v1/lotteries/not-an-id", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/lotteries/507f1f77bcf86cd799439011", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
