package api

import (
	"context"
	"net/http"

	"github.com/St1cky1/entraide-service/internal/api/handlers"
	"github.com/St1cky1/entraide-service/internal/events"
	"github.com/St1cky1/entraide-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthCheck - проверка зависимостей для /healthz, nil означает "всегда ок"
type HealthCheck func(ctx context.Context) error

type Services struct {
	Auth          *usecase.AuthService
	Users         *usecase.UserService
	Tasks         *usecase.TaskService
	Points        *usecase.PointsService
	Notifications *usecase.NotificationService
	Hub           *events.Hub
	Health        HealthCheck
}

func NewRouter(s Services) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	authHandler := handlers.NewAuthHandler(s.Auth)
	userHandler := handlers.NewUserHandler(s.Users)
	taskHandler := handlers.NewTaskHandler(s.Tasks, s.Users)
	pointsHandler := handlers.NewPointsHandler(s.Points)
	notificationHandler := handlers.NewNotificationHandler(s.Notifications)
	eventsHandler := handlers.NewEventsHandler(s.Hub, s.Tasks)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if s.Health != nil {
			if err := s.Health(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(handlers.RequireAuth(s.Auth)).Post("/logout", authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireAuth(s.Auth))

			r.Get("/users/me", userHandler.GetMe)
			r.Put("/users/me", userHandler.UpdateMe)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.ListTasks)
				r.Post("/", taskHandler.CreateTask)
				r.Get("/events", eventsHandler.Stream)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", taskHandler.GetTask)
					r.Get("/history", taskHandler.History)
					r.Post("/propose", taskHandler.Propose())
					r.Post("/confirm", taskHandler.Confirm())
					r.Post("/decline", taskHandler.Decline())
					r.Post("/cancel", taskHandler.Cancel())
					r.Post("/complete", taskHandler.Complete())
				})
			})

			r.Route("/points", func(r chi.Router) {
				r.Get("/me", pointsHandler.Mine)
				r.Get("/{helperID}", pointsHandler.ForHelper)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Post("/read-all", notificationHandler.MarkAllRead)
				r.Post("/{id}/read", notificationHandler.MarkRead)
			})
		})
	})

	return r
}
