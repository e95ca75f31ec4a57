package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"kingo/internal/auth"
	"kingo/internal/game"
	"kingo/internal/journal"
	"kingo/internal/oracle"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const callerContextKey contextKey = "caller"

type Server struct {
	log     *slog.Logger
	minter  *auth.Minter
	game    *game.Game
	journal journal.Recorder
	mux     *chi.Mux

	// claims makes join first-come-first-served: a handle mints exactly
	// one token through the public endpoint.
	claimsMu sync.Mutex
	claims   map[string]struct{}
}

func New(logger *slog.Logger, minter *auth.Minter, g *game.Game, rec journal.Recorder) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:     logger,
		minter:  minter,
		game:    g,
		journal: rec,
		mux:     chi.NewRouter(),
		claims:  map[string]struct{}{},
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "phase": s.game.Phase().String()})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/join", s.handleJoin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/game", s.handleGame)
			r.Get("/assets", s.handleAssets)
			r.Post("/assets", s.handleRegisterAsset)
			r.Get("/assets/{id}", s.handleAssetDetail)
			r.Post("/subscribe", s.handleSubscribe)
			r.Post("/swaps", s.handleSwap)
			r.Get("/portfolio", s.handleOwnPortfolio)
			r.Get("/portfolio/{handle}", s.handlePortfolio)
			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/crown", s.handleCrown)
			r.Post("/crown/steal", s.handleStealCrown)
			r.Get("/prize", s.handlePrize)
			r.Post("/prize/topup", s.handlePrizeTopUp)
			r.Post("/prize/redeem", s.handlePrizeRedeem)
			r.Get("/events", s.handleEvents)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		handle, err := s.minter.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), callerContextKey, handle)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromContext(ctx context.Context) (string, error) {
	handle, ok := ctx.Value(callerContextKey).(string)
	if !ok || handle == "" {
		return "", errors.New("missing auth context")
	}
	return handle, nil
}

// handleJoin mints a token for an unclaimed handle. Each handle joins
// once; the organizer identity never mints here, it is provisioned out
// of band from the server secret (kingo-token).
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Handle string `json:"handle"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	handle := strings.TrimSpace(in.Handle)
	if handle == s.game.Organizer() {
		writeError(w, http.StatusForbidden, "organizer identity is provisioned out of band")
		return
	}
	token, err := s.minter.Mint(handle)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.claimsMu.Lock()
	_, taken := s.claims[handle]
	if !taken {
		s.claims[handle] = struct{}{}
	}
	s.claimsMu.Unlock()
	if taken {
		writeError(w, http.StatusConflict, "handle already claimed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"handle": handle,
		"token":  token,
	})
}

func (s *Server) handleGame(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.View())
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Assets(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": out})
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		AssetID int64 `json:"asset_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	asset, err := s.game.RegisterAsset(r.Context(), caller, in.AssetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (s *Server) handleAssetDetail(w http.ResponseWriter, r *http.Request) {
	assetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	assets, err := s.game.Assets(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	for _, a := range assets {
		if a.ID != assetID {
			continue
		}
		var series []journal.PricePoint
		if s.journal != nil {
			series, err = s.journal.ListPrices(r.Context(), assetID, 64)
			if err != nil {
				s.log.Error("price history read failed", "asset", assetID, "err", err)
				series = nil
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"asset": a, "series": series})
		return
	}
	writeError(w, http.StatusNotFound, "unknown asset")
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.Subscribe(r.Context(), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		FromAsset    int64 `json:"from_asset"`
		ToAsset      int64 `json:"to_asset"`
		AmountMicros int64 `json:"amount_micros"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Swap(r.Context(), caller, in.FromAsset, in.ToAsset, in.AmountMicros)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOwnPortfolio(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.Portfolio(r.Context(), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Portfolio(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.game.Leaderboard(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleCrown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Crown())
}

func (s *Server) handleStealCrown(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.StealCrown(r.Context(), caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePrize(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prizes": s.game.Prizes()})
}

func (s *Server) handlePrizeTopUp(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Token        string `json:"token"`
		AmountMicros int64  `json:"amount_micros"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.TopUpPrize(r.Context(), caller, in.Token, in.AmountMicros)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePrizeRedeem(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Token        string `json:"token"`
		AmountMicros int64  `json:"amount_micros"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.RedeemPrize(r.Context(), caller, in.Token, in.AmountMicros)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"events": []journal.StoredEvent{}})
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	events, err := s.journal.ListEvents(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrPhaseViolation), errors.Is(err, game.ErrAlreadySubscribed),
		errors.Is(err, game.ErrRegistrySealed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrCooldownActive):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, game.ErrUnknownAsset), errors.Is(err, oracle.ErrUnknownAsset),
		errors.Is(err, game.ErrUnknownPlayer):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInsufficientBalance), errors.Is(err, game.ErrInsufficientPrizePool),
		errors.Is(err, game.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrNotCrownHolder), errors.Is(err, game.ErrNotOrganizer):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, oracle.ErrStalePrice), errors.Is(err, oracle.ErrUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
