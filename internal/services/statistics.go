package services

import (
	"context"
	"time"

	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ActivityWindow is how far back the recent activity feed reaches.
const ActivityWindow = 7 * 24 * time.Hour

type StatisticsService struct {
	db  *gorm.DB
	cal *Calendar
}

func NewStatisticsService(db *gorm.DB, cal *Calendar) *StatisticsService {
	return &StatisticsService{db: db, cal: cal}
}

type RevenueStats struct {
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue decimal.Decimal `json:"monthly_revenue"`
	DailyRevenue   decimal.Decimal `json:"daily_revenue"`
	TotalMembers   int64           `json:"total_members"`
	ActiveMembers  int64           `json:"active_members"`
}

type RevenueRow struct {
	ID             uint            `json:"id"`
	UniqueCode     string          `json:"unique_code"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	PricePaid      decimal.Decimal `json:"price_paid"`
	MemberType     models.Category `json:"member_type"`
	GymPlan        models.Plan     `json:"gym_plan"`
	Status         models.Status   `json:"status"`
	DateRegistered time.Time       `json:"date_registered"`
}

type RevenueReport struct {
	Stats   RevenueStats `json:"stats"`
	Members []RevenueRow `json:"members"`
}

type ActivityEntry struct {
	LogID      uint      `json:"log_id"`
	MemberID   uint      `json:"member_id"`
	MemberName string    `json:"member_name"`
	ActionType string    `json:"action_type"`
	ActionDate time.Time `json:"action_date"`
	Remarks    string    `json:"remarks"`
}

type MonthlyReport struct {
	Summary       SummaryCard    `json:"summary"`
	OverviewChart CategorySeries `json:"overview_chart"`
}

// Revenue totals price_paid over every member, with subtotals for members
// registered since the start of the current organizational day and month.
func (s *StatisticsService) Revenue(ctx context.Context) (*RevenueReport, error) {
	var rows []RevenueRow
	if err := s.db.WithContext(ctx).Model(&models.Member{}).
		Select("id, unique_code, first_name, last_name, price_paid, member_type, gym_plan, status, date_registered").
		Order("date_registered DESC, id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := SumRevenue(rows, s.cal.StartOfDay(), s.cal.StartOfMonth())
	if rows == nil {
		rows = []RevenueRow{}
	}
	return &RevenueReport{Stats: stats, Members: rows}, nil
}

// SumRevenue aggregates rows in exact decimal arithmetic. Registration
// timestamps are compared as instants, so the zone they carry is irrelevant.
func SumRevenue(rows []RevenueRow, startOfDay, startOfMonth time.Time) RevenueStats {
	stats := RevenueStats{
		TotalRevenue:   decimal.Zero,
		MonthlyRevenue: decimal.Zero,
		DailyRevenue:   decimal.Zero,
	}
	for _, r := range rows {
		stats.TotalMembers++
		if r.Status == models.StatusActive {
			stats.ActiveMembers++
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(r.PricePaid)
		if !r.DateRegistered.Before(startOfMonth) {
			stats.MonthlyRevenue = stats.MonthlyRevenue.Add(r.PricePaid)
		}
		if !r.DateRegistered.Before(startOfDay) {
			stats.DailyRevenue = stats.DailyRevenue.Add(r.PricePaid)
		}
	}
	return stats
}

// RecentActivity returns membership log entries from the trailing seven
// days with member names, newest first.
func (s *StatisticsService) RecentActivity(ctx context.Context) ([]ActivityEntry, error) {
	type activityRow struct {
		LogID      uint
		MemberID   uint
		FirstName  string
		LastName   string
		ActionType string
		ActionDate time.Time
		Remarks    string
	}

	since := s.cal.Now().Add(-ActivityWindow)

	var rows []activityRow
	if err := s.db.WithContext(ctx).
		Table("membership_logs").
		Select("membership_logs.id AS log_id, members.id AS member_id, members.first_name, members.last_name, " +
			"membership_logs.action_type, membership_logs.action_date, membership_logs.remarks").
		Joins("JOIN members ON members.id = membership_logs.member_id").
		Where("membership_logs.action_date >= ?", since).
		Order("membership_logs.action_date DESC, membership_logs.id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]ActivityEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, ActivityEntry{
			LogID:      r.LogID,
			MemberID:   r.MemberID,
			MemberName: r.FirstName + " " + r.LastName,
			ActionType: r.ActionType,
			ActionDate: r.ActionDate,
			Remarks:    r.Remarks,
		})
	}
	return entries, nil
}

// MonthlyRegistrations counts new registrations per category for the current
// month and the five before it. Each month spans [first instant, next month's
// first instant) in the organizational timezone.
func (s *StatisticsService) MonthlyRegistrations(ctx context.Context) (*MonthlyReport, error) {
	db := s.db.WithContext(ctx)
	loc := s.cal.Location()

	report := &MonthlyReport{}
	windowCounts := make(map[models.Category]int64, len(models.Categories))

	for offset := -(SummaryMonths - 1); offset <= 0; offset++ {
		start := s.cal.MonthStartInstant(offset)
		end := s.cal.MonthStartInstant(offset + 1)

		counts, err := countBy(db.Model(&models.Member{}).
			Where("date_registered >= ? AND date_registered < ?", start, end), "member_type")
		if err != nil {
			return nil, err
		}

		report.OverviewChart.Labels = append(report.OverviewChart.Labels, start.In(loc).Format("2006-01"))
		report.OverviewChart.Students = append(report.OverviewChart.Students, counts[string(models.CategoryStudent)])
		report.OverviewChart.Faculty = append(report.OverviewChart.Faculty, counts[string(models.CategoryFaculty)])
		report.OverviewChart.Outsiders = append(report.OverviewChart.Outsiders, counts[string(models.CategoryOutsider)])
		for _, c := range models.Categories {
			windowCounts[c] += counts[string(c)]
		}
	}

	if err := db.Model(&models.Member{}).Count(&report.Summary.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Member{}).
		Where("status = ?", models.StatusActive).
		Count(&report.Summary.Active).Error; err != nil {
		return nil, err
	}
	report.Summary.MostActive = MostActiveCategory(windowCounts)

	return report, nil
}
