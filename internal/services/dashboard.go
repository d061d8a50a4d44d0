package services

import (
	"context"
	"time"

	"github.com/nwssu/gymdesk/backend/internal/models"
	"gorm.io/gorm"
)

// SummaryMonths is the length of the rolling dashboard series.
const SummaryMonths = 6

type DashboardService struct {
	db      *gorm.DB
	cal     *Calendar
	sweeper *SweepService
	cache   *SummaryCache
	metrics *Metrics
}

func NewDashboardService(db *gorm.DB, cal *Calendar, sweeper *SweepService, cache *SummaryCache, metrics *Metrics) *DashboardService {
	return &DashboardService{db: db, cal: cal, sweeper: sweeper, cache: cache, metrics: metrics}
}

type SummaryCard struct {
	Total      int64           `json:"total"`
	Active     int64           `json:"active"`
	MostActive models.Category `json:"most_active"`
}

// CategorySeries holds one value per label for each category.
type CategorySeries struct {
	Labels    []string `json:"labels"`
	Students  []int64  `json:"students"`
	Faculty   []int64  `json:"faculty"`
	Outsiders []int64  `json:"outsiders"`
}

type Chart struct {
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}

type DashboardSummary struct {
	Summary        SummaryCard    `json:"summary"`
	OverviewChart  CategorySeries `json:"overview_chart"`
	StatusChart    Chart          `json:"status_chart"`
	StatusOverview Chart          `json:"status_overview"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

type groupCount struct {
	GroupKey string
	Total    int64
}

func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, s.computeSummary)
}

func (s *DashboardService) computeSummary(ctx context.Context) (*DashboardSummary, error) {
	db := s.db.WithContext(ctx)

	byStatus, err := countBy(db.Model(&models.Member{}), "status")
	if err != nil {
		return nil, err
	}
	activeByCategory, err := countBy(db.Model(&models.Member{}).Where("status = ?", models.StatusActive), "member_type")
	if err != nil {
		return nil, err
	}

	statusCounts := make(map[models.Status]int64, len(models.Statuses))
	var total int64
	overview := Chart{}
	for _, st := range models.Statuses {
		n := byStatus[string(st)]
		statusCounts[st] = n
		total += n
		overview.Labels = append(overview.Labels, string(st))
		overview.Values = append(overview.Values, n)
	}
	// Rows with an unexpected status still count towards the total.
	for k, n := range byStatus {
		if _, ok := models.ParseStatus(k); !ok {
			total += n
		}
	}

	categoryChart := Chart{}
	activeCounts := make(map[models.Category]int64, len(models.Categories))
	for _, c := range models.Categories {
		n := activeByCategory[string(c)]
		activeCounts[c] = n
		categoryChart.Labels = append(categoryChart.Labels, string(c))
		categoryChart.Values = append(categoryChart.Values, n)
	}

	series, err := s.activeSeries(db)
	if err != nil {
		return nil, err
	}

	s.metrics.observeStatuses(statusCounts)

	return &DashboardSummary{
		Summary: SummaryCard{
			Total:      total,
			Active:     statusCounts[models.StatusActive],
			MostActive: MostActiveCategory(activeCounts),
		},
		OverviewChart:  *series,
		StatusChart:    categoryChart,
		StatusOverview: overview,
		GeneratedAt:    s.cal.Now(),
	}, nil
}

// activeSeries counts, for the current month and the five before it, the
// members whose [start_date, end_date] overlaps the month, per category.
// Current status is deliberately not considered.
func (s *DashboardService) activeSeries(db *gorm.DB) (*CategorySeries, error) {
	series := &CategorySeries{}
	for offset := -(SummaryMonths - 1); offset <= 0; offset++ {
		first, last := s.cal.MonthDates(offset)

		counts, err := countBy(db.Model(&models.Member{}).
			Where("start_date <= ? AND end_date >= ?", last, first), "member_type")
		if err != nil {
			return nil, err
		}

		series.Labels = append(series.Labels, first.Format("Jan"))
		series.Students = append(series.Students, counts[string(models.CategoryStudent)])
		series.Faculty = append(series.Faculty, counts[string(models.CategoryFaculty)])
		series.Outsiders = append(series.Outsiders, counts[string(models.CategoryOutsider)])
	}
	return series, nil
}

// MostActiveCategory picks the category with the highest count; ties go to
// the earliest category in Student, Faculty, Outsider order.
func MostActiveCategory(counts map[models.Category]int64) models.Category {
	best := models.Categories[0]
	for _, c := range models.Categories[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// countBy runs a GROUP BY column count on q.
func countBy(q *gorm.DB, column string) (map[string]int64, error) {
	var rows []groupCount
	if err := q.Select(column + " AS group_key, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.GroupKey] = r.Total
	}
	return out, nil
}
