package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterConfig carries the ambient settings the router needs
type RouterConfig struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	LogLevel       slog.Level
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, payrollHandler PayrollHandler, notificationHandler NotificationHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		MaxAge:           300,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {

		// Token-authenticated via query parameter; EventSource cannot send headers
		r.Get("/notifications/stream", notificationHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(chiMiddleware.AllowContentType("application/json"))

			r.Route("/payroll", func(r chi.Router) {
				r.Route("/records", func(r chi.Router) {
					r.Get("/", payrollHandler.ListRecords)
					r.Post("/", payrollHandler.CreateRecord)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", payrollHandler.GetRecord)
						r.Delete("/", payrollHandler.DeleteRecord)
						r.Get("/history", payrollHandler.GetHistory)

						// Role and state guards live in the service so that a
						// wrong role reads as an invalid transition
						r.Post("/submit", payrollHandler.SubmitForApproval)
						r.Post("/approve", payrollHandler.ApproveAndSend)
						r.Post("/reject", payrollHandler.RejectRecord)
						r.Post("/confirm", payrollHandler.Confirm)
						r.Post("/dispute", payrollHandler.Dispute)
						r.Post("/revise", payrollHandler.Revise)
						r.Post("/reject-dispute", payrollHandler.RejectDispute)
					})
				})

				// HR and administrators only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(user.RoleHRAdmin, user.RoleAdministrator))
					r.Get("/summary", payrollHandler.GetSummary)
					r.Post("/compute", payrollHandler.PreviewTotals)
				})

				r.Route("/employees/{employeeID}/allowances", func(r chi.Router) {
					r.Get("/", payrollHandler.ListAllowances)
					r.With(middleware.RequirePermission(user.PermissionAllowanceManage)).Post("/", payrollHandler.AssignAllowance)
				})
				r.With(middleware.RequirePermission(user.PermissionAllowanceManage)).Delete("/allowances/{id}", payrollHandler.DeactivateAllowance)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Put("/read", notificationHandler.MarkAsRead)
				r.Put("/read-all", notificationHandler.MarkAllAsRead)
				r.Delete("/{id}", notificationHandler.Delete)
				r.Put("/preferences", notificationHandler.UpdatePreference)
				r.Get("/sse-token", notificationHandler.GetSSEToken)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	return r
}
