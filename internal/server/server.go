// Package server exposes the risk engine over HTTP: a JSON API plus a
// WebSocket endpoint that streams per-allergen details as they are scored.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/duartefn/rotulo/internal/app"
	"github.com/duartefn/rotulo/internal/crosscontact"
	"github.com/duartefn/rotulo/internal/fooddict"
	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/model"
	"github.com/duartefn/rotulo/internal/source"
	"github.com/duartefn/rotulo/internal/taxonomy"
)

// Config configures the HTTP surface.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// AppConfig configures the underlying application; nil uses defaults.
	AppConfig *app.Config

	Logger logging.Logger
}

// Server is the HTTP + WebSocket API surface.
type Server struct {
	cfg      Config
	app      *app.Application
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer creates a Server with its own application context.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	application, err := app.NewApplication(cfg.AppConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("building application: %w", err)
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:    cfg,
		app:    application,
		router: r,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}
	s.routes()
	return s, nil
}

// App returns the underlying application for advanced use (tests, etc.).
func (s *Server) App() *app.Application {
	return s.app
}

// Close releases application resources.
func (s *Server) Close() error {
	return s.app.Close()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = s.app.Config.ListenAddr
	}
	s.logger.Info("listening", logging.Field{Key: "addr", Value: addr})
	return http.ListenAndServe(addr, s)
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/risk", s.optionsHandler("POST"))
	r.Options("/resolve", s.optionsHandler("POST"))
	r.Options("/allergens", s.optionsHandler("GET"))

	r.Get("/health", s.handleHealth)
	r.Get("/allergens", s.handleListAllergens)
	r.Post("/resolve", s.handleResolve)
	r.Post("/risk", s.handleRisk)
	r.Get("/ws/risk", s.handleRiskWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", logging.Field{Key: "error", Value: err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

// handleHealth godoc
// @Summary Readiness probe
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListAllergens godoc
// @Summary List the allergen catalog
// @Param lang query string false "Label language (en or pt)"
// @Success 200 {array} AllergenInfo
// @Router /allergens [get]
func (s *Server) handleListAllergens(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	out := make([]AllergenInfo, 0, len(taxonomy.Codes()))
	for _, code := range taxonomy.Codes() {
		out = append(out, AllergenInfo{Code: string(code), Label: taxonomy.Label(code, lang)})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleResolve godoc
// @Summary Resolve a free-form allergen token to a canonical code
// @Param request body ResolveRequest true "Token to resolve"
// @Success 200 {object} ResolveResponse
// @Router /resolve [post]
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		s.writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	code, ok := taxonomy.Resolve(req.Token)
	resp := ResolveResponse{Token: req.Token, Resolved: ok}
	if ok {
		resp.Code = string(code)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleRisk godoc
// @Summary Compute allergen risk for a barcode and user allergen set
// @Param request body RiskRequest true "Assessment request"
// @Success 200 {object} RiskResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /risk [post]
func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	var req RiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	profile, errMsg := profileFromRequest(&req)
	if errMsg != "" {
		s.writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	result, err := s.app.Engine.Assess(r.Context(), req.Barcode, profile)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		s.logger.Error("assessment failed",
			logging.Field{Key: "barcode", Value: req.Barcode},
			logging.Field{Key: "error", Value: err.Error()})
		s.writeError(w, http.StatusInternalServerError, "unable to compute risk for product")
		return
	}

	if s.app.History != nil {
		if _, err := s.app.History.Append(r.Context(), "api", result.Product.Source, profile, result); err != nil {
			s.logger.Warn("history append failed", logging.Field{Key: "error", Value: err.Error()})
		}
	}

	resp := RiskResponse{
		RequestID: uuid.New().String(),
		Product:   productSummary(result.Product),
		Risk:      riskBreakdown(result),
	}
	if req.ConsiderFacility {
		blends := s.app.Engine.CrossContact(result.Product, profile.NormalizedCodes())
		resp.CrossContact = make(map[string]crosscontact.Blend, len(blends))
		for code, blend := range blends {
			resp.CrossContact[string(code)] = blend
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleRiskWS streams per-allergen details over a WebSocket, then a summary
// frame. Parameters arrive as query values: barcode, allergens (comma list),
// traces, facility.
func (s *Server) handleRiskWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := RiskRequest{
		Barcode:          query.Get("barcode"),
		UserAllergens:    splitList(query.Get("allergens")),
		ConsiderFacility: query.Get("facility") == "1" || query.Get("facility") == "true",
	}
	if query.Get("traces") == "0" || query.Get("traces") == "false" {
		f := false
		req.ConsiderMayContain = &f
	}
	profile, errMsg := profileFromRequest(&req)
	if errMsg != "" {
		s.writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	result, err := s.app.Engine.Assess(r.Context(), req.Barcode, profile)
	if err != nil {
		msg := "unable to compute risk for product"
		if errors.Is(err, source.ErrNotFound) {
			msg = "product not found"
		}
		_ = conn.WriteJSON(ErrorResponse{Error: msg})
		return
	}

	for _, code := range profile.NormalizedCodes() {
		detail := result.PerAllergen[code]
		if err := conn.WriteJSON(wsMessage{Type: "detail", Detail: &detail}); err != nil {
			return
		}
	}
	total := result.TotalScore
	_ = conn.WriteJSON(wsMessage{Type: "summary", Total: &total})
}

func profileFromRequest(req *RiskRequest) (*model.UserAllergyProfile, string) {
	if strings.TrimSpace(req.Barcode) == "" {
		return nil, "barcode is required"
	}
	if len(req.UserAllergens) == 0 {
		return nil, "user_allergens is required"
	}
	avoidTraces := true
	if req.ConsiderMayContain != nil {
		avoidTraces = *req.ConsiderMayContain
	}
	return &model.UserAllergyProfile{
		Codes:             req.UserAllergens,
		AvoidTraces:       avoidTraces,
		AvoidFacilityRisk: req.ConsiderFacility,
	}, ""
}

func productSummary(product *model.ProductInfo) ProductSummary {
	summary := ProductSummary{
		EAN:        product.EAN,
		Name:       product.Name,
		Brand:      product.Brand,
		Source:     product.Source,
		TracesTags: product.TracesTags,
		Raw:        product.RawPayload,
	}
	if texts := fooddict.CollectIngredientTexts(product); len(texts) > 0 {
		summary.IngredientsText = texts[0]
	}
	return summary
}

func riskBreakdown(result *model.RiskResult) RiskBreakdown {
	per := make(map[string]AllergenRisk, len(result.PerAllergen))
	for code, detail := range result.PerAllergen {
		per[string(code)] = AllergenRisk{Score: detail.Score, Reasons: detail.Reasons}
	}
	return RiskBreakdown{PerAllergen: per, FinalScore: result.TotalScore}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
