package apihttp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// StatsHandler serves per-game settlement statistics straight from the
// read model.
type StatsHandler struct {
	db *sql.DB
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(db *sql.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

// ServeHTTP handles GET /api/v1/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	locationID := r.URL.Query().Get("location_id")
	if locationID == "" {
		http.Error(w, "location_id is required", http.StatusBadRequest)
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := queryGameStats(r.Context(), h.db, locationID, from, to)
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

// ExportSettlementsCSVHandler serves settlement CSV exports from the raw
// settlement table, for back-office imports.
type ExportSettlementsCSVHandler struct {
	db *sql.DB
}

// NewExportSettlementsCSVHandler constructs a ExportSettlementsCSVHandler.
func NewExportSettlementsCSVHandler(db *sql.DB) *ExportSettlementsCSVHandler {
	return &ExportSettlementsCSVHandler{db: db}
}

// ServeHTTP handles GET /api/v1/exports/settlements.csv.
func (h *ExportSettlementsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	locationID := r.URL.Query().Get("location_id")
	if locationID == "" {
		http.Error(w, "location_id is required", http.StatusBadRequest)
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := querySettlements(r.Context(), h.db, locationID, from, to)
	if err != nil {
		http.Error(w, "query settlements error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"location_id",
		"settlement_date",
		"game_name",
		"book_number",
		"total_tickets",
		"tickets_sold",
		"gross_sales",
		"commission",
		"net_due",
		"status",
		"created_at",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.LocationID,
			row.SettlementDate.Format(dateLayout),
			row.GameName,
			row.BookNumber,
			strconv.Itoa(row.TotalTickets),
			strconv.Itoa(row.TicketsSold),
			row.GrossSales.StringFixed(2),
			row.Commission.StringFixed(2),
			row.NetDue.StringFixed(2),
			row.Status,
			row.CreatedAt.Format(time.RFC3339),
		})
	}
	writer.Flush()
}

type gameStatRow struct {
	GameID       string          `json:"game_id"`
	GameName     string          `json:"game_name"`
	BooksSettled int             `json:"books_settled"`
	TicketsSold  int             `json:"tickets_sold"`
	GrossSales   decimal.Decimal `json:"gross_sales"`
	Commission   decimal.Decimal `json:"commission"`
	NetDue       decimal.Decimal `json:"net_due"`
}

type settlementRow struct {
	LocationID     string
	SettlementDate time.Time
	GameName       string
	BookNumber     string
	TotalTickets   int
	TicketsSold    int
	GrossSales     decimal.Decimal
	Commission     decimal.Decimal
	NetDue         decimal.Decimal
	Status         string
	CreatedAt      time.Time
}

func queryGameStats(ctx context.Context, db *sql.DB, locationID string, from, to time.Time) ([]gameStatRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	game_id,
	game_name,
	COUNT(*),
	COALESCE(SUM(tickets_sold), 0),
	COALESCE(SUM(gross_sales), 0),
	COALESCE(SUM(commission), 0),
	COALESCE(SUM(net_due), 0)
FROM lottery_settlements
WHERE location_id = $1 AND settlement_date >= $2 AND settlement_date < $3
GROUP BY game_id, game_name
ORDER BY SUM(gross_sales) DESC`, locationID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []gameStatRow
	for rows.Next() {
		var row gameStatRow
		if err := rows.Scan(
			&row.GameID,
			&row.GameName,
			&row.BooksSettled,
			&row.TicketsSold,
			&row.GrossSales,
			&row.Commission,
			&row.NetDue,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func querySettlements(ctx context.Context, db *sql.DB, locationID string, from, to time.Time) ([]settlementRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	location_id,
	settlement_date,
	game_name,
	book_number,
	total_tickets,
	tickets_sold,
	gross_sales,
	commission,
	net_due,
	status,
	created_at
FROM lottery_settlements
WHERE location_id = $1 AND settlement_date >= $2 AND settlement_date < $3
ORDER BY settlement_date, created_at`, locationID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settlementRow
	for rows.Next() {
		var row settlementRow
		if err := rows.Scan(
			&row.LocationID,
			&row.SettlementDate,
			&row.GameName,
			&row.BookNumber,
			&row.TotalTickets,
			&row.TicketsSold,
			&row.GrossSales,
			&row.Commission,
			&row.NetDue,
			&row.Status,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.IsZero() {
		to = time.Now().UTC().AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("to must be after from")
	}
	return from, to, nil
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
