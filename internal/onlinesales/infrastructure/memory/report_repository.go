package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	onlinesales "storeops-cloud/internal/onlinesales/domain"
)

// ReportRepository is an in-memory daily report store for tests and
// local runs.
type ReportRepository struct {
	mu    sync.RWMutex
	byID  map[string]onlinesales.DailyReport
	byDay map[string]string
}

// NewReportRepository constructs an empty store.
func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		byID:  make(map[string]onlinesales.DailyReport),
		byDay: make(map[string]string),
	}
}

// Get loads one report by id.
func (r *ReportRepository) Get(_ context.Context, id string) (*onlinesales.DailyReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.byID[id]
	if !ok {
		return nil, onlinesales.ErrReportNotFound
	}
	copied := report
	return &copied, nil
}

// FindByLocationAndDate loads the report for one location and day.
func (r *ReportRepository) FindByLocationAndDate(_ context.Context, locationID string, date time.Time) (*onlinesales.DailyReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byDay[dayKey(locationID, date)]
	if !ok {
		return nil, onlinesales.ErrReportNotFound
	}
	report := r.byID[id]
	copied := report
	return &copied, nil
}

// ListByLocation returns reports for a location within [from, to), newest first.
func (r *ReportRepository) ListByLocation(_ context.Context, locationID string, from, to time.Time) ([]onlinesales.DailyReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []onlinesales.DailyReport
	for _, report := range r.byID {
		if report.LocationID != locationID {
			continue
		}
		if report.Date.Before(from) || !report.Date.Before(to) {
			continue
		}
		result = append(result, report)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result, nil
}

// Create stores a report, rejecting a second one for the same day.
func (r *ReportRepository) Create(_ context.Context, report *onlinesales.DailyReport) error {
	if report == nil {
		return onlinesales.ErrNilReport
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := dayKey(report.LocationID, report.Date)
	if _, exists := r.byDay[key]; exists {
		return fmt.Errorf("%w: %s at %s", onlinesales.ErrDuplicateReport,
			report.Date.Format("2006-01-02"), report.LocationID)
	}
	r.byID[report.ID] = *report
	r.byDay[key] = report.ID
	return nil
}

// Update persists verification and note changes.
func (r *ReportRepository) Update(_ context.Context, report *onlinesales.DailyReport) error {
	if report == nil {
		return onlinesales.ErrNilReport
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[report.ID]; !ok {
		return onlinesales.ErrReportNotFound
	}
	r.byID[report.ID] = *report
	return nil
}

func dayKey(locationID string, date time.Time) string {
	return locationID + "|" + date.UTC().Format("2006-01-02")
}
