package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storeops-cloud/internal/audit"
	"storeops-cloud/internal/auth"
	"storeops-cloud/internal/observability/metrics"
	onlinesalesapp "storeops-cloud/internal/onlinesales/application"
	onlinesales "storeops-cloud/internal/onlinesales/domain"
)

const dateLayout = "2006-01-02"

// Handler provides online sales ledger HTTP endpoints.
type Handler struct {
	service         *onlinesalesapp.Service
	locationChecker auth.LocationTenantChecker
	auditLogger     audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *onlinesalesapp.Service, locationChecker auth.LocationTenantChecker, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("onlinesales handler: nil service")
	}
	return &Handler{service: service, locationChecker: locationChecker, auditLogger: auditLogger}, nil
}

type reportEntryRequest struct {
	GameName string `json:"gameName"`
	Amount   string `json:"amount"`
	Returns  string `json:"returns,omitempty"`
	Credits  string `json:"credits,omitempty"`
}

type submitReportRequest struct {
	LocationID string               `json:"locationId"`
	Date       string               `json:"date"`
	TotalSales string               `json:"totalSales,omitempty"`
	Payouts    string               `json:"payouts,omitempty"`
	Commission string               `json:"commission,omitempty"`
	Entries    []reportEntryRequest `json:"entries,omitempty"`
	Notes      string               `json:"notes,omitempty"`
}

// ServeHTTP handles /api/v1/online-sales and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/online-sales":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleSubmit(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case r.URL.Path == "/api/v1/online-sales/totals":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleTotals(w, r)
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/online-sales/"):
		h.handleAction(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.ensureLocation(r, req.LocationID); err != nil {
		respondTenantError(w, err)
		return
	}
	cmd, err := buildSubmitCommand(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd.LoggedBy = auth.SubjectFromContext(r.Context())

	report, err := h.service.SubmitReport(r.Context(), cmd)
	if err != nil {
		metrics.IncOnlineReport(metrics.ResultError)
		respondReportError(w, err)
		return
	}
	metrics.IncOnlineReport(metrics.ResultSuccess)
	h.logAudit(r, "online_sales.submit", report)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(report)
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
	from, err := parseDateQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if to.IsZero() {
		to = time.Now().UTC().AddDate(0, 0, 1)
	}
	list, err := h.service.ListReports(r.Context(), locationID, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	locationID := r.URL.Query().Get("location_id")
	if locationID == "" {
		http.Error(w, "location_id is required", http.StatusBadRequest)
		return
	}
	if err := h.ensureLocation(r, locationID); err != nil {
		respondTenantError(w, err)
		return
	}
	ref := time.Now().UTC()
	if month := r.URL.Query().Get("month"); month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}
		ref = parsed
	}
	totals, err := h.service.MonthTotals(r.Context(), locationID, ref)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(totals)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/online-sales/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "verify" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	report, err := h.service.Verify(r.Context(), parts[0])
	if err != nil {
		respondReportError(w, err)
		return
	}
	h.logAudit(r, "online_sales.verify", report)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func buildSubmitCommand(req submitReportRequest) (onlinesalesapp.SubmitReportCommand, error) {
	var cmd onlinesalesapp.SubmitReportCommand
	if req.Date == "" {
		return cmd, errors.New("date is required")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return cmd, errors.New("date must be YYYY-MM-DD")
	}
	totalSales, err := parseAmount(req.TotalSales)
	if err != nil {
		return cmd, errors.New("invalid totalSales")
	}
	payouts, err := parseAmount(req.Payouts)
	if err != nil {
		return cmd, errors.New("invalid payouts")
	}
	commission, err := parseAmount(req.Commission)
	if err != nil {
		return cmd, errors.New("invalid commission")
	}
	entries := make([]onlinesales.ReportEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		amount, err := parseAmount(entry.Amount)
		if err != nil {
			return cmd, errors.New("invalid entry amount")
		}
		returns, err := parseAmount(entry.Returns)
		if err != nil {
			return cmd, errors.New("invalid entry returns")
		}
		credits, err := parseAmount(entry.Credits)
		if err != nil {
			return cmd, errors.New("invalid entry credits")
		}
		entries = append(entries, onlinesales.ReportEntry{
			GameName: entry.GameName,
			Amount:   amount,
			Returns:  returns,
			Credits:  credits,
		})
	}
	return onlinesalesapp.SubmitReportCommand{
		LocationID: req.LocationID,
		Date:       date,
		TotalSales: totalSales,
		Payouts:    payouts,
		Commission: commission,
		Entries:    entries,
		Notes:      req.Notes,
	}, nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be YYYY-MM-DD")
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

func respondReportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, onlinesales.ErrReportNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, onlinesales.ErrDuplicateReport):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, onlinesales.ErrInvalidReport):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) logAudit(r *http.Request, action string, report *onlinesales.DailyReport) {
	tenantID := auth.TenantIDFromContext(r.Context())
	if h.auditLogger == nil || tenantID == "" || report == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{
		"report_date": report.Date.Format(dateLayout),
		"total_sales": report.TotalSales.StringFixed(2),
	})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "online_sales_report",
		ResourceID:   report.ID,
		LocationID:   report.LocationID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
