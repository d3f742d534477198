package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storeops-cloud/internal/audit"
	"storeops-cloud/internal/auth"
	inventory "storeops-cloud/internal/inventory/domain"
	locations "storeops-cloud/internal/locations/domain"
	"storeops-cloud/internal/observability/metrics"
	settlementapp "storeops-cloud/internal/settlement/application"
	settlement "storeops-cloud/internal/settlement/domain"
	"storeops-cloud/internal/settlement/interfaces"
)

const dateLayout = "2006-01-02"

// LocationReader loads location metadata for export headers.
type LocationReader interface {
	Get(ctx context.Context, id string) (*locations.Location, error)
}

// Handler provides settlement HTTP endpoints.
type Handler struct {
	service         *settlementapp.Service
	locations       LocationReader
	locationChecker auth.LocationTenantChecker
	auditLogger     audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *settlementapp.Service, locations LocationReader, locationChecker auth.LocationTenantChecker, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("settlement handler: nil service")
	}
	return &Handler{
		service:         service,
		locations:       locations,
		locationChecker: locationChecker,
		auditLogger:     auditLogger,
	}, nil
}

type settleRequest struct {
	BookID         string `json:"bookId"`
	SettlementDate string `json:"settlementDate,omitempty"`
}

// ServeHTTP handles /api/v1/settlements and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/settlements":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleSettle(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/settlements/export."):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r)
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/settlements/"):
		h.handleSettlement(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	var date time.Time
	if req.SettlementDate != "" {
		parsed, err := time.Parse(dateLayout, req.SettlementDate)
		if err != nil {
			http.Error(w, "settlementDate must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}
	record, err := h.service.SettleBook(r.Context(), settlementapp.SettleBookCommand{
		BookID:         req.BookID,
		SettlementDate: date,
	})
	if err != nil {
		metrics.ObserveSettlement(metrics.ResultError, time.Since(started))
		respondSettlementError(w, err)
		return
	}
	metrics.ObserveSettlement(metrics.ResultSuccess, time.Since(started))
	h.logAudit(r, "settlement.create", record)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(record)
}

func (h *Handler) handleSettlement(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/settlements/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		record, err := h.service.Get(r.Context(), parts[0])
		if err != nil {
			respondSettlementError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(record)
	case len(parts) == 2 && parts[1] == "approve" && r.Method == http.MethodPost:
		record, err := h.service.Approve(r.Context(), parts[0], auth.SubjectFromContext(r.Context()))
		if err != nil {
			respondSettlementError(w, err)
			return
		}
		metrics.IncSettlementApproved()
		h.logAudit(r, "settlement.approve", record)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(record)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	locationID, from, to, err := h.listParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.ensureLocation(r, locationID); err != nil {
		respondTenantError(w, err)
		return
	}
	list, err := h.service.ListByLocation(r.Context(), locationID, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	format := strings.TrimPrefix(r.URL.Path, "/api/v1/settlements/export.")
	locationID, from, to, err := h.listParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.ensureLocation(r, locationID); err != nil {
		respondTenantError(w, err)
		return
	}
	list, err := h.service.ListByLocation(r.Context(), locationID, from, to)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	period := interfaces.ExportPeriod{LocationName: locationID, From: from, To: to}
	if h.locations != nil {
		if location, err := h.locations.Get(r.Context(), locationID); err == nil && location != nil {
			period.LocationName = location.Name
		}
	}

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case "csv":
		payload, err = interfaces.BuildSettlementCSV(list)
		contentType = "text/csv"
	case "pdf":
		payload, err = interfaces.BuildSettlementPDF(period, list)
		contentType = "application/pdf"
	case "xlsx":
		payload, err = interfaces.BuildSettlementXLSX(period, list)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		http.Error(w, "unsupported export format", http.StatusBadRequest)
		return
	}
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(started))

	filename := fmt.Sprintf("settlements-%s-%s.%s", locationID, from.Format(dateLayout), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(payload)
}

func (h *Handler) listParams(r *http.Request) (string, time.Time, time.Time, error) {
	locationID := r.URL.Query().Get("location_id")
	if locationID == "" {
		return "", time.Time{}, time.Time{}, errors.New("location_id is required")
	}
	from, err := parseDateQuery(r, "from")
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	if to.IsZero() {
		to = time.Now().UTC().AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return "", time.Time{}, time.Time{}, errors.New("to must be after from")
	}
	return locationID, from, to, nil
}

func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", key)
	}
	return parsed.UTC(), nil
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

func respondSettlementError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrSettlementNotFound),
		errors.Is(err, inventory.ErrBookNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, settlement.ErrDuplicateSettlement),
		errors.Is(err, settlement.ErrNotSettleable),
		errors.Is(err, settlement.ErrAlreadyApproved),
		errors.Is(err, inventory.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) logAudit(r *http.Request, action string, record *settlement.Settlement) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.auditLogger == nil || tenantID == "" || record == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{
		"book_number": record.BookNumber,
		"gross_sales": record.GrossSales.StringFixed(2),
		"net_due":     record.NetDue.StringFixed(2),
	})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "settlement",
		ResourceID:   record.ID,
		LocationID:   record.LocationID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
