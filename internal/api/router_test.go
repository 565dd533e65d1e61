package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/events"
	"github.com/St1cky1/entraide-service/internal/infrastructure/auth"
	"github.com/St1cky1/entraide-service/internal/repository/memory"
	"github.com/St1cky1/entraide-service/internal/usecase"
	"github.com/St1cky1/entraide-service/internal/worker"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t   *testing.T
	srv *httptest.Server
	hub *events.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	users := memory.NewUserRepository()
	points := memory.NewPointsRepository()
	notifications := memory.NewNotificationRepository()
	hub := events.NewHub()

	authService := usecase.NewAuthService(
		users,
		memory.NewRefreshTokenRepository(),
		auth.NewPasswordManager(bcrypt.MinCost),
		auth.NewJWTManager("test-secret", time.Minute, time.Hour),
	)
	history := memory.NewTaskHistoryRepository()
	taskService := usecase.NewTaskService(
		memory.NewTaskRepository(),
		users,
		points,
		notifications,
		history,
		memory.Transactor{},
		events.Fanout{hub, worker.NewHistoryRecorder(history)},
		usecase.TaskServiceConfig{},
	)

	router := NewRouter(Services{
		Auth:          authService,
		Users:         usecase.NewUserService(users),
		Tasks:         taskService,
		Points:        usecase.NewPointsService(points),
		Notifications: usecase.NewNotificationService(notifications),
		Hub:           hub,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, hub: hub}
}

func (s *testServer) do(method, path, token string, body interface{}, out interface{}) int {
	s.t.Helper()

	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) register(name, email string, role entity.Role) entity.LoginResponse {
	s.t.Helper()
	var resp entity.LoginResponse
	code := s.do(http.MethodPost, "/api/v1/auth/register", "", entity.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "motdepasse",
		Role:     role,
	}, &resp)
	require.Equal(s.t, http.StatusCreated, code)
	return resp
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	senior := s.register("Jeanne Dupont", "jeanne@example.org", entity.RoleSenior)
	helper := s.register("Lucas Martin", "lucas@example.org", entity.RoleHelper)

	var task entity.Task
	code := s.do(http.MethodPost, "/api/v1/tasks", senior.AccessToken, map[string]interface{}{
		"type":           "groceries",
		"keywords":       []string{"supermarché"},
		"location":       "Namur",
		"requested_date": "2026-11-03",
	}, &task)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, entity.StatusPending, task.Status)

	base := "/api/v1/tasks/" + task.ID.String()

	var list []entity.Task
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/tasks", helper.AccessToken, nil, &list))
	require.Len(t, list, 1)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/propose", helper.AccessToken, nil, &task))
	assert.Equal(t, entity.StatusWaitingApproval, task.Status)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/confirm", senior.AccessToken, nil, &task))
	assert.Equal(t, entity.StatusAssigned, task.Status)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/complete", helper.AccessToken, nil, &task))
	assert.Equal(t, entity.StatusCompleted, task.Status)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, base+"/cancel", senior.AccessToken, nil, nil))

	var history []entity.TaskHistory
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, base+"/history", senior.AccessToken, nil, &history))
	require.Len(t, history, 4)
	assert.Equal(t, entity.EventCreated, history[0].Kind)
	assert.Equal(t, entity.EventCompleted, history[3].Kind)

	var summary entity.PointsSummary
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/points/me", helper.AccessToken, nil, &summary))
	assert.Equal(t, 50, summary.Points)
	assert.Equal(t, 2, summary.Level)

	var notifications []entity.Notification
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/notifications", helper.AccessToken, nil, &notifications))
	assert.Len(t, notifications, 3)

	var unread map[string]int
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/notifications/unread-count", senior.AccessToken, nil, &unread))
	assert.Equal(t, 2, unread["unread"])

	// чужое уведомление
	readPath := "/api/v1/notifications/" + notifications[0].ID.String() + "/read"
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, readPath, senior.AccessToken, nil, nil))
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, readPath, helper.AccessToken, nil, nil))
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	senior := s.register("Jeanne Dupont", "jeanne@example.org", entity.RoleSenior)
	other := s.register("Paul Simon", "paul@example.org", entity.RoleSenior)
	helper := s.register("Lucas Martin", "lucas@example.org", entity.RoleHelper)

	var task entity.Task
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/tasks", senior.AccessToken, map[string]interface{}{
		"type":           "cooking",
		"keywords":       []string{"soupe"},
		"location":       "Liège",
		"requested_date": "2026-11-04",
	}, &task))
	base := "/api/v1/tasks/" + task.ID.String()

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/tasks", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/tasks", "garbage", nil, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/tasks", senior.AccessToken, "{", nil))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/tasks", senior.AccessToken, map[string]interface{}{
		"type": "knitting",
	}, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/tasks/not-a-uuid", senior.AccessToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v1/tasks/00000000-0000-0000-0000-000000000001/propose", helper.AccessToken, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, base+"/cancel", other.AccessToken, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/v1/tasks", helper.AccessToken, map[string]interface{}{
		"type":           "cooking",
		"keywords":       []string{"soupe"},
		"location":       "Liège",
		"requested_date": "2026-11-04",
	}, nil))
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, base+"/confirm", senior.AccessToken, nil, nil))
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/auth/register", "", entity.RegisterRequest{
		Name:     "Jeanne",
		Email:    "jeanne@example.org",
		Password: "motdepasse",
		Role:     entity.RoleSenior,
	}, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/auth/login", "", entity.LoginRequest{
		Email:    "jeanne@example.org",
		Password: "wrong-password",
	}, nil))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.srv.Client().Get(s.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTaskEventsStream(t *testing.T) {
	s := newTestServer(t)
	senior := s.register("Jeanne Dupont", "jeanne@example.org", entity.RoleSenior)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.srv.URL+"/api/v1/tasks/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+senior.AccessToken)

	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return s.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	var task entity.Task
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/tasks", senior.AccessToken, map[string]interface{}{
		"type":           "technology",
		"keywords":       []string{"tablette"},
		"location":       "Mons",
		"requested_date": "2026-11-06",
	}, &task))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: created\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var event entity.TaskEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
	assert.Equal(t, task.ID, event.TaskID)
	assert.Equal(t, entity.StatusPending, event.To)
}

func (s *testServer) openStream(ctx context.Context, token, query string) *http.Response {
	s.t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.srv.URL+"/api/v1/tasks/events"+query, nil)
	require.NoError(s.t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	return resp
}

func (s *testServer) createTask(token, location string) entity.Task {
	s.t.Helper()
	var task entity.Task
	require.Equal(s.t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
		"type":           "cooking",
		"keywords":       []string{"soupe"},
		"location":       location,
		"requested_date": "2026-11-10",
	}, &task))
	return task
}

func TestTaskEventsStreamHidesForeignTasks(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("Jeanne Dupont", "jeanne@example.org", entity.RoleSenior)
	stranger := s.register("Paul Simon", "paul@example.org", entity.RoleSenior)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := s.openStream(ctx, stranger.AccessToken, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool { return s.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	foreign := s.createTask(owner.AccessToken, "Namur")
	own := s.createTask(stranger.AccessToken, "Liège")

	// первое полученное событие - уже своя задача, чужое отброшено
	reader := bufio.NewReader(resp.Body)
	_, err := reader.ReadString('\n')
	require.NoError(t, err)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)

	var event entity.TaskEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
	assert.Equal(t, own.ID, event.TaskID)
	assert.NotEqual(t, foreign.ID, event.TaskID)
	assert.Equal(t, stranger.User.ID, event.RequestedBy)
}

func TestTaskEventsStreamChecksTaskAccess(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("Jeanne Dupont", "jeanne@example.org", entity.RoleSenior)
	stranger := s.register("Paul Simon", "paul@example.org", entity.RoleSenior)
	task := s.createTask(owner.AccessToken, "Namur")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := s.openStream(ctx, stranger.AccessToken, "?task_id="+task.ID.String())
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.openStream(ctx, stranger.AccessToken, "?task_id="+uuid.NewString())
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.openStream(ctx, owner.AccessToken, "?task_id="+task.ID.String())
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	var out syncBuffer
	prev := middleware.DefaultLogger
	middleware.DefaultLogger = middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  log.New(&out, "", 0),
		NoColor: true,
	})
	t.Cleanup(func() { middleware.DefaultLogger = prev })

	s := newTestServer(t)
	resp, err := s.srv.Client().Get(s.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "/healthz") }, time.Second, 10*time.Millisecond)
	assert.Regexp(t, regexp.MustCompile(`^\[[^\]]+\] "GET `), out.String())
}
