// Package http provides the server-rendered web UI for the fleet.
package http

import (
	"context"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"kfz/internal/auth"
	"kfz/internal/core"
	"kfz/internal/csvimport"
	applog "kfz/internal/log"
	"kfz/internal/storage"
	appweb "kfz/web"
)

// VehicleStore covers the vehicle CRUD the handlers need.
type VehicleStore interface {
	ListVehicles(ctx context.Context) ([]core.Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (core.Vehicle, error)
	CreateVehicle(ctx context.Context, v core.Vehicle) (int64, error)
	UpdateVehicle(ctx context.Context, v core.Vehicle) error
	DeleteVehicle(ctx context.Context, id int64) error
}

type MileageStore interface {
	CreateMileageRecord(ctx context.Context, m core.MileageRecord) (int64, error)
	ListMileageRecords(ctx context.Context, vehicleID int64) ([]core.MileageRecord, error)
	CurrentOdometer(ctx context.Context, vehicleID int64) (int64, error)
	OdometerHistory(ctx context.Context, vehicleID int64) ([]storage.OdometerPoint, error)
}

type FuelStore interface {
	CreateFuelRecord(ctx context.Context, f core.FuelRecord) (int64, error)
	GetFuelRecord(ctx context.Context, id int64) (core.FuelRecord, error)
	UpdateFuelRecord(ctx context.Context, f core.FuelRecord) error
	DeleteFuelRecord(ctx context.Context, id int64) error
	ListFuelRecords(ctx context.Context, vehicleID int64) ([]core.FuelRecord, error)
	ListAllFuelRecords(ctx context.Context) ([]core.FuelRecord, error)
}

type MaintenanceStore interface {
	CreateMaintenanceRecord(ctx context.Context, m core.MaintenanceRecord) (int64, error)
	DeleteMaintenanceRecord(ctx context.Context, id int64) error
	ListMaintenanceRecords(ctx context.Context, vehicleID int64) ([]core.MaintenanceRecord, error)
	ListAllMaintenanceRecords(ctx context.Context) ([]core.MaintenanceRecord, error)
	UpcomingMaintenance(ctx context.Context, vehicleID int64) ([]core.MaintenanceRecord, error)
}

// DashboardStore covers the fleet-wide aggregates on the start page.
type DashboardStore interface {
	CountVehiclesByStatus(ctx context.Context) (map[core.VehicleStatus]int, error)
	CountDueSoonMaintenance(ctx context.Context, windowDays int) (int, error)
	TotalFuelCost(ctx context.Context) (float64, error)
	TotalMaintenanceCost(ctx context.Context) (float64, error)
	MonthlyFuelCosts(ctx context.Context, months int) ([]storage.MonthCost, error)
	MonthlyMaintenanceCosts(ctx context.Context, months int) ([]storage.MonthCost, error)
	FuelCostsByVehicle(ctx context.Context) ([]storage.VehicleCost, error)
	RecentActivity(ctx context.Context, limit int) ([]storage.Activity, error)
}

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (storage.User, error)
}

// Store is everything the server needs from persistence.
type Store interface {
	VehicleStore
	MileageStore
	FuelStore
	MaintenanceStore
	DashboardStore
	UserStore
}

// Importer runs CSV fuel imports.
type Importer interface {
	Import(ctx context.Context, vehicleID int64, r io.Reader) (csvimport.Result, error)
}

const sessionCookie = "kfz_session"

type Server struct {
	http.Server
	templates *template.Template
	store     Store
	sessions  *auth.SessionStore
	importer  Importer
	log       *applog.Logger

	fuelTypes      []string
	maxUploadBytes int64

	rateLimiter *rateLimiter
}

// Options carries the deployment knobs NewServer needs beyond its
// collaborators.
type Options struct {
	FuelTypes      []string
	MaxUploadBytes int64
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, store Store, sessions *auth.SessionStore, importer Importer, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		store:          store,
		sessions:       sessions,
		importer:       importer,
		log:            applog.Default("http"),
		fuelTypes:      opts.FuelTypes,
		maxUploadBytes: opts.MaxUploadBytes,
		rateLimiter:    newRateLimiter(),
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = 5 << 20
	}

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.log.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.log.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/login", s.withRequestLog(s.handleLogin))
	mux.HandleFunc("/logout", s.withRequestLog(s.requireAuth(s.handleLogout)))

	mux.HandleFunc("/", s.withRequestLog(s.requireAuth(s.handleDashboard)))
	mux.HandleFunc("/vehicles", s.withRequestLog(s.requireAuth(s.handleVehicles)))
	mux.HandleFunc("/vehicles/new", s.withRequestLog(s.requireAuth(s.handleVehicleNew)))
	mux.HandleFunc("/vehicles/edit", s.withRequestLog(s.requireAuth(s.handleVehicleEdit)))
	mux.HandleFunc("/vehicles/delete", s.withRequestLog(s.requireAuth(s.handleVehicleDelete)))
	mux.HandleFunc("/vehicles/detail", s.withRequestLog(s.requireAuth(s.handleVehicleDetail)))
	mux.HandleFunc("/fuel", s.withRequestLog(s.requireAuth(s.handleFuel)))
	mux.HandleFunc("/fuel/edit", s.withRequestLog(s.requireAuth(s.handleFuelEdit)))
	mux.HandleFunc("/fuel/delete", s.withRequestLog(s.requireAuth(s.handleFuelDelete)))
	mux.HandleFunc("/fuel/import", s.withRequestLog(s.requireAuth(s.handleFuelImport)))
	mux.HandleFunc("/maintenance", s.withRequestLog(s.requireAuth(s.handleMaintenance)))
	mux.HandleFunc("/maintenance/delete", s.withRequestLog(s.requireAuth(s.handleMaintenanceDelete)))

	return s
}

// Shutdown stops the rate limiter's cleanup goroutine before shutting the
// HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.stop()
	}
	return s.Server.Shutdown(ctx)
}

// withRequestLog adds security headers, rate limiting and request logging.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		r = r.WithContext(ctx)

		s.log.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.log.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Zu viele Anfragen. Bitte später erneut versuchen.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.log.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// requireAuth redirects requests without a valid session to the login page.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if _, ok := s.sessions.Validate(cookie.Value); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// render executes a template, answering 500 when rendering fails.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.log.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Simple in-memory rate limiter for POST requests.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}
