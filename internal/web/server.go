package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/StarAlexander/inventory-storage-diploma/internal/auth"
	"github.com/StarAlexander/inventory-storage-diploma/internal/service"
)

// Services are the use cases the API exposes.
type Services struct {
	Transactions *service.TransactionService
	Documents    *service.DocumentService
	Accounts     *service.AccountService
	Registry     *service.RegistryService
}

type Server struct {
	svc    Services
	authn  *auth.HeaderAuthenticator
	authz  auth.Authorizer
	router chi.Router
	logger *slog.Logger
}

func NewServer(svc Services, authz auth.Authorizer, logger *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		authn:  auth.NewHeaderAuthenticator(),
		authz:  authz,
		router: chi.NewRouter(),
		logger: logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler { return requestLogger(s.logger, next) })
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	// Anyone holding a public key may check a signature.
	r.Post("/signatures/verify", s.handleVerifySignature)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.With(s.require(auth.ActionUsersCreate)).Post("/users", s.handleCreateUser)
		r.With(s.require(auth.ActionUsersRead)).Get("/users/{id}/public-key", s.handlePublicKey)

		r.Route("/warehouses", func(r chi.Router) {
			r.With(s.require(auth.ActionWarehousesWrite)).Post("/", s.handleCreateWarehouse)
			r.With(s.require(auth.ActionWarehousesRead)).Get("/", s.handleListWarehouses)
			r.With(s.require(auth.ActionWarehousesRead)).Get("/{id}", s.handleGetWarehouse)
			r.With(s.require(auth.ActionWarehousesWrite)).Post("/{id}/zones", s.handleCreateZone)
			r.With(s.require(auth.ActionWarehousesRead)).Get("/{id}/zones", s.handleListZones)
		})

		r.With(s.require(auth.ActionWarehousesWrite)).Post("/templates", s.handleCreateTemplate)
		r.With(s.require(auth.ActionWarehousesRead)).Get("/templates", s.handleListTemplates)

		r.With(s.require(auth.ActionEquipmentWrite)).Post("/equipment", s.handleRegisterEquipment)
		r.With(s.require(auth.ActionEquipmentRead)).Get("/equipment/{id}", s.handleGetEquipment)

		r.With(s.require(auth.ActionTransactionsCreate)).Post("/transactions", s.handleCreateTransaction)
		r.With(s.require(auth.ActionTransactionsRead)).Get("/transactions", s.handleListTransactions)

		r.Route("/documents", func(r chi.Router) {
			r.With(s.require(auth.ActionDocumentsRead)).Get("/", s.handleListDocuments)
			r.With(s.require(auth.ActionDocumentsRead)).Get("/pending", s.handleListPending)
			r.With(s.require(auth.ActionDocumentsRead)).Get("/{id}", s.handleGetDocument)
			r.With(s.require(auth.ActionDocumentsMaterialize)).Post("/{id}/materialize", s.handleMaterialize)
			r.With(s.require(auth.ActionDocumentsRead)).Get("/{id}/pdf", s.handleGetPDF)
			r.With(s.require(auth.ActionDocumentsSign)).Post("/{id}/sign", s.handleSign)
		})
	})
}

// authenticate attaches the caller's principal to the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authn.Authenticate(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// require rejects the request unless the principal may perform action.
func (s *Server) require(action auth.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := auth.FromContext(r.Context())
			if err := s.authz.Authorize(r.Context(), p, action); err != nil {
				s.logger.Warn("request denied",
					"user_id", p.UserID,
					"action", action,
					"request_id", middleware.GetReqID(r.Context()),
					"error", err)
				s.writeServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	securityHeaders(s.router).ServeHTTP(w, r)
}

// HTTPServer returns an http.Server for addr using the timeouts the API is
// tuned for. PDF downloads are bounded by WriteTimeout.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
