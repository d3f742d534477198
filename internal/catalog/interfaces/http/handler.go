package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"storeops-cloud/internal/audit"
	"storeops-cloud/internal/auth"
	catalogapp "storeops-cloud/internal/catalog/application"
	catalog "storeops-cloud/internal/catalog/domain"
)

// Handler provides game catalog HTTP endpoints.
type Handler struct {
	service     *catalogapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *catalogapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("catalog handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

type gameRequest struct {
	GameNumber     string `json:"gameNumber"`
	Name           string `json:"name"`
	TicketPrice    string `json:"ticketPrice"`
	TicketsPerBook int    `json:"ticketsPerBook"`
	CommissionRate string `json:"commissionRate"`
}

// ServeHTTP handles /api/v1/games and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/games":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleAdd(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/games/"):
		h.handleGame(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListActiveGames(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	cmd, err := decodeGameRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	game, err := h.service.AddGame(r.Context(), cmd)
	if err != nil {
		respondCatalogError(w, err)
		return
	}
	h.logAudit(r, "game.add", game.ID, game.GameNumber)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(game)
}

func (h *Handler) handleGame(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/games/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		game, err := h.service.GetGame(r.Context(), parts[0])
		if err != nil {
			respondCatalogError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(game)
	case len(parts) == 2 && parts[1] == "supersede" && r.Method == http.MethodPost:
		cmd, err := decodeGameRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		game, err := h.service.SupersedeGame(r.Context(), parts[0], cmd)
		if err != nil {
			respondCatalogError(w, err)
			return
		}
		h.logAudit(r, "game.supersede", game.ID, game.GameNumber)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(game)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func decodeGameRequest(r *http.Request) (catalogapp.AddGameCommand, error) {
	var req gameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return catalogapp.AddGameCommand{}, errors.New("invalid json body")
	}
	price, err := decimal.NewFromString(req.TicketPrice)
	if err != nil {
		return catalogapp.AddGameCommand{}, errors.New("invalid ticketPrice")
	}
	rate, err := decimal.NewFromString(req.CommissionRate)
	if err != nil {
		return catalogapp.AddGameCommand{}, errors.New("invalid commissionRate")
	}
	return catalogapp.AddGameCommand{
		GameNumber:     req.GameNumber,
		Name:           req.Name,
		TicketPrice:    price,
		TicketsPerBook: req.TicketsPerBook,
		CommissionRate: rate,
	}, nil
}

func respondCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrGameNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrDuplicateGameNumber), errors.Is(err, catalog.ErrGameReferenced):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, catalog.ErrEmptyGameNumber),
		errors.Is(err, catalog.ErrEmptyName),
		errors.Is(err, catalog.ErrInvalidTicketPrice),
		errors.Is(err, catalog.ErrInvalidTicketsPerBook),
		errors.Is(err, catalog.ErrInvalidCommissionRate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) logAudit(r *http.Request, action, gameID, gameNumber string) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.auditLogger == nil || tenantID == "" {
		return
	}
	meta, _ := json.Marshal(map[string]any{"game_number": gameNumber})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "game",
		ResourceID:   gameID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
