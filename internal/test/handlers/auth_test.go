package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"facequery-backend/internal/auth"
	"facequery-backend/internal/database"
	"facequery-backend/internal/handlers"
	"facequery-backend/internal/models"
)

type stubUserStore struct {
	users     map[string]*models.User
	createErr error
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{users: make(map[string]*models.User)}
}

func (s *stubUserStore) CreateUser(user *models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.users[user.Username]; exists {
		return database.ErrDuplicateUsername
	}
	user.CreatedAt = time.Now()
	s.users[user.Username] = user
	return nil
}

func (s *stubUserStore) GetUserByUsername(username string) (*models.User, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, database.ErrNotFound
	}
	return user, nil
}

func newAuthRouter(users *stubUserStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := handlers.NewAuthHandler(users, tokens, zap.NewNop().Sugar())

	router := gin.New()
	router.POST("/signup", handler.Signup)
	router.POST("/login", handler.Login)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSignup_Success(t *testing.T) {
	users := newStubUserStore()
	router := newAuthRouter(users)

	w := postJSON(router, "/signup", models.SignupRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	// Password is stored hashed, never verbatim.
	stored := users.users["alice"]
	assert.NotEqual(t, "hunter2hunter2", stored.PasswordHash)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "hunter2hunter2"))
}

func TestSignup_ValidationError(t *testing.T) {
	router := newAuthRouter(newStubUserStore())

	w := postJSON(router, "/signup", models.SignupRequest{
		Username: "al", // too short
		Email:    "not-an-email",
		Password: "short",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignup_DuplicateUsername(t *testing.T) {
	users := newStubUserStore()
	router := newAuthRouter(users)

	first := postJSON(router, "/signup", models.SignupRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2hunter2",
	})
	assert.Equal(t, http.StatusCreated, first.Code)

	second := postJSON(router, "/signup", models.SignupRequest{
		Username: "alice", Email: "other@example.com", Password: "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestLogin_Success(t *testing.T) {
	users := newStubUserStore()
	router := newAuthRouter(users)

	postJSON(router, "/signup", models.SignupRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2hunter2",
	})

	w := postJSON(router, "/login", models.LoginRequest{
		Username: "alice", Password: "hunter2hunter2",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	users := newStubUserStore()
	router := newAuthRouter(users)

	postJSON(router, "/signup", models.SignupRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2hunter2",
	})

	w := postJSON(router, "/login", models.LoginRequest{
		Username: "alice", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnknownUser(t *testing.T) {
	router := newAuthRouter(newStubUserStore())

	w := postJSON(router, "/login", models.LoginRequest{
		Username: "nobody", Password: "whatever1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
