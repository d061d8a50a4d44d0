package services

import (
	"context"
	"math"
	"time"

	"github.com/nwssu/gymdesk/backend/internal/models"
	"gorm.io/gorm"
)

const (
	MaxWorkoutMinutes    = 600
	RecentWorkoutsOnDash = 5
)

type WorkoutService struct {
	db        *gorm.DB
	cal       *Calendar
	lifecycle *LifecycleService
}

func NewWorkoutService(db *gorm.DB, cal *Calendar, lifecycle *LifecycleService) *WorkoutService {
	return &WorkoutService{db: db, cal: cal, lifecycle: lifecycle}
}

type LogWorkoutRequest struct {
	WorkoutType     string `json:"workout_type"`
	WorkoutDate     string `json:"workout_date"` // YYYY-MM-DD, defaults to now
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
}

type MemberDashboard struct {
	Member         *models.Member   `json:"member"`
	DaysRemaining  int              `json:"days_remaining"`
	TotalWorkouts  int64            `json:"total_workouts"`
	TotalHours     float64          `json:"total_hours"`
	Streak         int              `json:"streak"`
	RecentWorkouts []models.Workout `json:"recent_workouts"`
}

func (s *WorkoutService) Log(ctx context.Context, memberID uint, req *LogWorkoutRequest) (*models.Workout, error) {
	if req.DurationMinutes < 1 || req.DurationMinutes > MaxWorkoutMinutes {
		return nil, &ValidationError{Field: "duration_minutes", Message: "must be between 1 and 600"}
	}

	when := s.cal.Now()
	if req.WorkoutDate != "" {
		d, err := ParseDate("workout_date", req.WorkoutDate)
		if err != nil {
			return nil, err
		}
		if d.After(s.cal.Today()) {
			return nil, &ValidationError{Field: "workout_date", Message: "must not be in the future"}
		}
		// Anchor to local midnight so the workout buckets onto the given date.
		when = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.cal.Location()).UTC()
	}

	if err := s.ensureMember(ctx, memberID); err != nil {
		return nil, err
	}

	workout := models.Workout{
		MemberID:        memberID,
		WorkoutType:     req.WorkoutType,
		WorkoutDate:     when,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&workout).Error; err != nil {
		return nil, err
	}
	return &workout, nil
}

func (s *WorkoutService) ensureMember(ctx context.Context, memberID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Member{}).Where("id = ?", memberID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &NotFoundError{Entity: "member", ID: memberID}
	}
	return nil
}

// List returns a member's workouts, newest first.
func (s *WorkoutService) List(ctx context.Context, memberID uint, limit int) ([]models.Workout, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var workouts []models.Workout
	err := s.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("workout_date DESC, id DESC").
		Limit(limit).
		Find(&workouts).Error
	return workouts, err
}

// Streak counts consecutive organizational days, ending today, with at least one workout.
func (s *WorkoutService) Streak(ctx context.Context, memberID uint) (int, error) {
	var dates []time.Time
	if err := s.db.WithContext(ctx).Model(&models.Workout{}).
		Where("member_id = ?", memberID).
		Order("workout_date DESC").
		Pluck("workout_date", &dates).Error; err != nil {
		return 0, err
	}
	return StreakFrom(dates, s.cal.Today(), s.cal.Location()), nil
}

// StreakFrom is the length of the run of consecutive calendar days, counting
// back from today, that contain a workout. Several workouts on one day count once.
func StreakFrom(workouts []time.Time, today time.Time, loc *time.Location) int {
	days := make(map[int64]struct{}, len(workouts))
	for _, w := range workouts {
		days[DateOf(w, loc).Unix()] = struct{}{}
	}

	streak := 0
	for d := today; ; d = d.AddDate(0, 0, -1) {
		if _, ok := days[d.Unix()]; !ok {
			return streak
		}
		streak++
	}
}

// Dashboard refreshes the member's status and gathers their workout statistics.
func (s *WorkoutService) Dashboard(ctx context.Context, memberID uint) (*MemberDashboard, error) {
	member, err := s.lifecycle.Refresh(ctx, memberID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	dash := &MemberDashboard{
		Member:        member,
		DaysRemaining: DaysRemaining(member.EndDate, s.cal.Today()),
	}

	if err := db.Model(&models.Workout{}).Where("member_id = ?", memberID).Count(&dash.TotalWorkouts).Error; err != nil {
		return nil, err
	}

	var minutes int64
	if err := db.Model(&models.Workout{}).
		Where("member_id = ?", memberID).
		Select("COALESCE(SUM(duration_minutes), 0)").
		Scan(&minutes).Error; err != nil {
		return nil, err
	}
	dash.TotalHours = math.Round(float64(minutes)/60*10) / 10

	if dash.Streak, err = s.Streak(ctx, memberID); err != nil {
		return nil, err
	}
	if dash.RecentWorkouts, err = s.List(ctx, memberID, RecentWorkoutsOnDash); err != nil {
		return nil, err
	}
	return dash, nil
}
