package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storeops-cloud/internal/audit"
	"storeops-cloud/internal/auth"
	inventory "storeops-cloud/internal/inventory/domain"
	"storeops-cloud/internal/observability/metrics"
	reconapp "storeops-cloud/internal/reconciliation/application"
	reconciliation "storeops-cloud/internal/reconciliation/domain"
)

const dateLayout = "2006-01-02"

// Handler provides daily count HTTP endpoints.
type Handler struct {
	service         *reconapp.Service
	locationChecker auth.LocationTenantChecker
	auditLogger     audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *reconapp.Service, locationChecker auth.LocationTenantChecker, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("reconciliation handler: nil service")
	}
	return &Handler{service: service, locationChecker: locationChecker, auditLogger: auditLogger}, nil
}

type recordCountRequest struct {
	BookID            string `json:"bookId"`
	Date              string `json:"date"`
	PhysicalRemaining int    `json:"physicalRemaining"`
	ReasonCode        string `json:"reasonCode,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// ServeHTTP handles /api/v1/counts and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/counts":
		switch r.Method {
		case http.MethodGet:
			h.handleListByBook(w, r)
		case http.MethodPost:
			h.handleRecord(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "/api/v1/counts/flagged":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleListFlagged(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req recordCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}
	if h.locationChecker != nil && req.BookID != "" {
		locationID, err := h.service.BookLocation(r.Context(), req.BookID)
		if err != nil {
			respondCountError(w, err)
			return
		}
		if err := h.ensureLocation(r, locationID); err != nil {
			respondTenantError(w, err)
			return
		}
	}

	result, err := h.service.RecordDailyCount(r.Context(), reconapp.RecordCountCommand{
		BookID:            req.BookID,
		Date:              date,
		PhysicalRemaining: req.PhysicalRemaining,
		ReasonCode:        req.ReasonCode,
		Notes:             req.Notes,
		LoggedBy:          auth.SubjectFromContext(r.Context()),
	})
	if err != nil {
		metrics.ObserveCountRecorded(metrics.ResultError, time.Since(started))
		respondCountError(w, err)
		return
	}
	metrics.ObserveCountRecorded(metrics.ResultSuccess, time.Since(started))
	if result.Flagged {
		kind := "variance"
		if result.Count.Variance > 0 {
			kind = "overage"
		}
		metrics.IncCountFlagged(kind)
	}
	if result.SoldOut {
		metrics.IncSoldOutDetected()
	}
	h.logAudit(r, result)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) handleListByBook(w http.ResponseWriter, r *http.Request) {
	bookID := r.URL.Query().Get("book_id")
	if bookID == "" {
		http.Error(w, "book_id is required", http.StatusBadRequest)
		return
	}
	list, err := h.service.ListByBook(r.Context(), bookID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleListFlagged(w http.ResponseWriter, r *http.Request) {
	locationID := r.URL.Query().Get("location_id")
	if locationID == "" {
		http.Error(w, "location_id is required", http.StatusBadRequest)
		return
	}
	if err := h.ensureLocation(r, locationID); err != nil {
		respondTenantError(w, err)
		return
	}
	list, err := h.service.ListFlagged(r.Context(), locationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
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

func respondCountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrBookNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, inventory.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, reconciliation.ErrReasonRequired),
		errors.Is(err, reconciliation.ErrNegativeRemaining),
		errors.Is(err, reconciliation.ErrImpossibleCount),
		errors.Is(err, reconciliation.ErrInvalidDate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) logAudit(r *http.Request, result *reconapp.CountResult) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.auditLogger == nil || tenantID == "" || result == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{
		"variance": result.Count.Variance,
		"flagged":  result.Flagged,
		"sold_out": result.SoldOut,
	})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       "count.record",
		ResourceType: "daily_count",
		ResourceID:   result.Count.ID,
		LocationID:   result.Count.LocationID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
