package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"storeops-cloud/internal/audit"
	"storeops-cloud/internal/auth"
	inventoryapp "storeops-cloud/internal/inventory/application"
	inventory "storeops-cloud/internal/inventory/domain"
	"storeops-cloud/internal/observability/metrics"
)

// Handler provides book inventory HTTP endpoints.
type Handler struct {
	service         *inventoryapp.Service
	locationChecker auth.LocationTenantChecker
	auditLogger     audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *inventoryapp.Service, locationChecker auth.LocationTenantChecker, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("inventory handler: nil service")
	}
	return &Handler{service: service, locationChecker: locationChecker, auditLogger: auditLogger}, nil
}

type receiveBookRequest struct {
	GameID      string `json:"gameId"`
	BookNumber  string `json:"bookNumber"`
	TicketStart int    `json:"ticketStart"`
	TicketEnd   int    `json:"ticketEnd"`
	LocationID  string `json:"locationId"`
}

type activateRequest struct {
	Register string `json:"register"`
}

// ServeHTTP handles /api/v1/books and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/books":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleReceive(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/books/"):
		h.handleBook(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	locationID := r.URL.Query().Get("location_id")
	if locationID == "" {
		http.Error(w, "location_id is required", http.StatusBadRequest)
		return
	}
	if err := h.ensureLocation(r, locationID); err != nil {
		respondTenantError(w, err)
		return
	}
	status := r.URL.Query().Get("status")
	list, err := h.service.ListBooks(r.Context(), locationID, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	var req receiveBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.ensureLocation(r, req.LocationID); err != nil {
		respondTenantError(w, err)
		return
	}
	book, err := h.service.ReceiveBook(r.Context(), inventoryapp.ReceiveBookCommand{
		GameID:      req.GameID,
		BookNumber:  req.BookNumber,
		TicketStart: req.TicketStart,
		TicketEnd:   req.TicketEnd,
		LocationID:  req.LocationID,
	})
	if err != nil {
		metrics.IncBookTransition(inventory.StatusInStock, metrics.ResultError)
		respondInventoryError(w, err)
		return
	}
	metrics.IncBookTransition(inventory.StatusInStock, metrics.ResultSuccess)
	h.logAudit(r, "book.receive", book)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(book)
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/books/")
	parts := strings.Split(path, "/")

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		book, err := h.service.GetBook(r.Context(), parts[0])
		if err != nil {
			respondInventoryError(w, err)
			return
		}
		if err := h.ensureLocation(r, book.LocationID); err != nil {
			respondTenantError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(book)
		return
	}
	if len(parts) != 2 || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]
	action := parts[1]

	var (
		book *inventory.Book
		err  error
	)
	switch action {
	case "activate":
		var req activateRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		book, err = h.service.Activate(r.Context(), id, req.Register)
	case "mark-sold-out":
		book, err = h.service.MarkSoldOut(r.Context(), id)
		if err == nil {
			metrics.IncSoldOutDetected()
		}
	case "archive":
		book, err = h.service.Archive(r.Context(), id)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		respondInventoryError(w, err)
		return
	}
	metrics.IncBookTransition(book.Status, metrics.ResultSuccess)
	h.logAudit(r, "book."+action, book)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(book)
}

func (h *Handler) ensureLocation(r *http.Request, locationID string) error {
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.locationChecker == nil || tenantID == "" || locationID == "" {
		return nil
	}
	return h.locationChecker.EnsureLocationTenant(r.Context(), tenantID, locationID)
}

func respondTenantError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, auth.ErrTenantMismatch) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if errors.Is(err, auth.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func respondInventoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrBookNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, inventory.ErrInvalidState),
		errors.Is(err, inventory.ErrDuplicateBookNumber):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, inventory.ErrInvalidRange),
		errors.Is(err, inventory.ErrRegression),
		errors.Is(err, inventory.ErrRangeExceeded),
		errors.Is(err, inventory.ErrLocationRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) logAudit(r *http.Request, action string, book *inventory.Book) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.auditLogger == nil || tenantID == "" || book == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{
		"book_number": book.BookNumber,
		"game_id":     book.GameID,
		"status":      book.Status,
	})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "book",
		ResourceID:   book.ID,
		LocationID:   book.LocationID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
