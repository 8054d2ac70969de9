// Package dashboard serves a read-only HTTP view of account state,
// open positions, and recent strategy decisions, plus a Prometheus
// scrape endpoint, mirroring the teacher bot's embedded-template chi
// server but rebuilt for the equities engine's domain.
package dashboard

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/neuralprobe/d4/internal/broker"
	"github.com/neuralprobe/d4/internal/models"
	"github.com/neuralprobe/d4/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//go:embed web/templates/*
var templateFS embed.FS

//go:embed web/static/*
var staticFS embed.FS

// Server renders account/position/decision state over HTTP.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	storage   storage.Interface
	broker    broker.Broker
	logger    *logrus.Logger
	port      int
	authToken string

	dashboardTemplate      *template.Template
	positionsTemplate      *template.Template
	statsTemplate          *template.Template
	positionDetailTemplate *template.Template
}

// Config configures a Server.
type Config struct {
	Port      int
	AuthToken string
}

// DashboardData is the top-level view model for the index page.
type DashboardData struct {
	Positions         []PositionView
	Stats             Statistics
	LastUpdate        time.Time
	AccountCash       float64
	AccountTotalValue float64
	MarketStatus      string
}

// PositionView is one held symbol rendered for the UI.
type PositionView struct {
	Symbol        string
	Quantity      float64
	AvgPrice      float64
	LastPrice     float64
	MarketValue   float64
	UnrealizedPnL float64
	PnLPercent    float64
	StopValue     float64
	StopKey       string
	IsProfit      bool
}

// Statistics summarizes realized history and current allocation.
type Statistics struct {
	TotalDecisions int
	BuyCount       int
	SellCount      int
	CurrentOpen    int
	TotalAllocated float64
	AllocationPct  float64
}

// NewServer builds a Server with its templates pre-parsed.
func NewServer(cfg Config, store storage.Interface, b broker.Broker, logger *logrus.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		storage:   store,
		broker:    b,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	if err := s.parseTemplates(); err != nil {
		logger.WithError(err).Fatal("failed to parse dashboard templates")
	}

	s.setupRoutes()
	return s
}

func (s *Server) parseTemplates() error {
	funcMap := template.FuncMap{
		"mul": func(a, b float64) float64 { return a * b },
		"div": func(a, b float64) float64 {
			if b == 0 {
				return 0
			}
			return a / b
		},
	}

	var err error
	s.dashboardTemplate, err = template.New("dashboard.html").Funcs(funcMap).ParseFS(templateFS, "web/templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse dashboard template: %w", err)
	}

	s.positionsTemplate, err = template.New("positions.html").Funcs(funcMap).ParseFS(templateFS, "web/templates/positions.html")
	if err != nil {
		return fmt.Errorf("failed to parse positions template: %w", err)
	}

	s.statsTemplate, err = template.New("stats.html").Funcs(funcMap).ParseFS(templateFS, "web/templates/stats.html")
	if err != nil {
		return fmt.Errorf("failed to parse stats template: %w", err)
	}

	s.positionDetailTemplate, err = template.New("position-detail.html").Funcs(funcMap).ParseFS(templateFS, "web/templates/position-detail.html")
	if err != nil {
		return fmt.Errorf("failed to parse position detail template: %w", err)
	}

	return nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLoggerMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(middleware.Compress(5))

	sub, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to create static filesystem")
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))

	register := func(r chi.Router) {
		r.Get("/", s.handleDashboard)
		r.Get("/api/positions", s.handleGetPositions)
		r.Get("/api/stats", s.handleGetStats)
		r.Get("/api/position/{symbol}", s.handleGetPosition)
		r.Get("/partials/positions", s.handlePositionsPartial)
		r.Get("/partials/stats", s.handleStatsPartial)
		r.Get("/partials/position/{symbol}", s.handlePositionDetailPartial)
	}

	if s.authToken != "" {
		s.router.Route("/", func(r chi.Router) {
			r.Use(s.authMiddleware)
			register(r)
		})
	} else {
		register(s.router)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loggedURL := s.redactTokenFromURL(r.URL)

		logEntry := s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"url":        loggedURL.String(),
			"user_agent": r.UserAgent(),
			"remote_ip":  r.RemoteAddr,
		})

		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		logEntry.WithFields(logrus.Fields{
			"status":   wrapped.Status(),
			"bytes":    wrapped.BytesWritten(),
			"duration": time.Since(start),
		}).Info("HTTP request")
	})
}

func (s *Server) redactTokenFromURL(originalURL *url.URL) *url.URL {
	loggedURL := &url.URL{
		Scheme:   originalURL.Scheme,
		Host:     originalURL.Host,
		Path:     originalURL.Path,
		RawQuery: originalURL.RawQuery,
		Fragment: originalURL.Fragment,
	}

	if originalURL.RawQuery != "" {
		values := originalURL.Query()
		for _, k := range []string{"token", "auth_token"} {
			if values.Has(k) {
				values.Set(k, "[REDACTED]")
			}
		}
		loggedURL.RawQuery = values.Encode()
	}

	return loggedURL
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		var token string
		token = r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			if cookie, err := r.Cookie("auth_token"); err == nil {
				token = cookie.Value
			}
		}

		if !s.isValidToken(token) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) isValidToken(token string) bool {
	if len(token) != len(s.authToken) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1
}

// Start runs the HTTP server until it stops or errors.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Infof("starting dashboard server on port %d", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := s.getDashboardData(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to get dashboard data")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.dashboardTemplate.Execute(w, data); err != nil {
		s.logger.WithError(err).Error("failed to execute dashboard template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	views := s.positionViews()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		s.logger.WithError(err).Error("failed to encode positions")
	}
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.calculateStatistics(r.Context())

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.logger.WithError(err).Error("failed to encode statistics")
	}
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	pos, found := s.storage.GetPositions()[symbol]
	if !found {
		s.logger.WithField("symbol", symbol).Warn("position not found")
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	view := convertPositionToView(pos)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.logger.WithError(err).Error("failed to encode position")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.WithError(err).Error("failed to encode health response")
	}
}

func (s *Server) handlePositionsPartial(w http.ResponseWriter, r *http.Request) {
	views := s.positionViews()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.positionsTemplate.ExecuteTemplate(w, "positions-content", views); err != nil {
		s.logger.WithError(err).Error("failed to execute positions template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleStatsPartial(w http.ResponseWriter, r *http.Request) {
	stats := s.calculateStatistics(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.statsTemplate.ExecuteTemplate(w, "stats-content", stats); err != nil {
		s.logger.WithError(err).Error("failed to execute stats template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handlePositionDetailPartial(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	pos, found := s.storage.GetPositions()[symbol]
	if !found {
		s.logger.WithField("symbol", symbol).Warn("position not found")
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	view := convertPositionToView(pos)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.positionDetailTemplate.Execute(w, view); err != nil {
		s.logger.WithError(err).Error("failed to execute position detail template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) getDashboardData(ctx context.Context) (*DashboardData, error) {
	stats := s.calculateStatistics(ctx)

	cash := s.storage.GetCash()
	total := cash
	if acct, err := s.broker.GetAccount(ctx); err == nil {
		cash = acct.Cash
		total = acct.PortfolioValue
	} else {
		s.logger.WithError(err).Warn("failed to get account state, falling back to storage snapshot")
		for _, pos := range s.storage.GetPositions() {
			total += pos.MarketValue
		}
	}

	marketStatus := "Closed"
	if isMarketOpen() {
		marketStatus = "Open"
	}

	return &DashboardData{
		Positions:         s.positionViews(),
		Stats:             stats,
		LastUpdate:        time.Now(),
		AccountCash:       cash,
		AccountTotalValue: total,
		MarketStatus:      marketStatus,
	}, nil
}

func (s *Server) positionViews() []PositionView {
	positions := s.storage.GetPositions()
	views := make([]PositionView, 0, len(positions))
	for _, pos := range positions {
		views = append(views, convertPositionToView(pos))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Symbol < views[j].Symbol })
	return views
}

func convertPositionToView(pos *models.Position) PositionView {
	pnl := pos.MarketValue - pos.CostBasis
	pnlPercent := 0.0
	if pos.CostBasis > 0 {
		pnlPercent = (pnl / pos.CostBasis) * 100
	}

	return PositionView{
		Symbol:        pos.Symbol,
		Quantity:      pos.Quantity,
		AvgPrice:      pos.AvgPrice,
		LastPrice:     pos.LastPrice,
		MarketValue:   pos.MarketValue,
		UnrealizedPnL: pnl,
		PnLPercent:    pnlPercent,
		StopValue:     pos.EffectiveStop(),
		StopKey:       pos.StopKey,
		IsProfit:      pnl > 0,
	}
}

func (s *Server) calculateStatistics(ctx context.Context) Statistics {
	positions := s.storage.GetPositions()
	history := s.storage.GetHistory()

	stats := Statistics{CurrentOpen: len(positions)}

	var totalAllocated float64
	for _, pos := range positions {
		totalAllocated += pos.MarketValue
	}

	for _, rec := range history {
		stats.TotalDecisions++
		if rec.Buy {
			stats.BuyCount++
		}
		if rec.Sell {
			stats.SellCount++
		}
	}

	total := totalAllocated + s.storage.GetCash()
	if acct, err := s.broker.GetAccount(ctx); err == nil {
		total = acct.PortfolioValue
	}

	stats.TotalAllocated = totalAllocated
	if total > 0 {
		stats.AllocationPct = (totalAllocated / total) * math.Abs(100)
	}

	return stats
}

func isMarketOpen() bool {
	now := time.Now()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	nyTime := now.In(loc)

	if nyTime.Weekday() == time.Saturday || nyTime.Weekday() == time.Sunday {
		return false
	}

	hour := nyTime.Hour()
	minute := nyTime.Minute()
	totalMinutes := hour*60 + minute

	marketOpen := 9*60 + 30
	marketClose := 16 * 60

	return totalMinutes >= marketOpen && totalMinutes < marketClose
}
