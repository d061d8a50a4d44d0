package services

import (
	"context"
	"fmt"

	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/nwssu/gymdesk/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SweepService applies lifecycle expiry to every eligible member at once.
type SweepService struct {
	db            *gorm.DB
	cal           *Calendar
	metrics       *Metrics
	cronScheduler *cron.Cron
}

func NewSweepService(db *gorm.DB, cal *Calendar, metrics *Metrics) *SweepService {
	return &SweepService{db: db, cal: cal, metrics: metrics}
}

// Sweep marks every member past their end date as Expired, skipping members
// manually set Active, and writes one Status Update log per transition.
// Status changes and logs commit together or not at all. A second run with
// no intervening changes transitions nobody.
func (s *SweepService) Sweep(ctx context.Context) (int, error) {
	today := s.cal.Today()
	now := s.cal.Now()

	var transitioned int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("end_date < ? AND status <> ?", today, models.StatusExpired).
			Order("id").
			Find(&candidates).Error; err != nil {
			return err
		}

		ids := make([]uint, 0, len(candidates))
		logs := make([]models.MembershipLog, 0, len(candidates))
		for _, m := range candidates {
			next, changed := Evaluate(m.Status, m.ManualActive, m.EndDate, today)
			if !changed || next != models.StatusExpired {
				continue
			}
			ids = append(ids, m.ID)
			logs = append(logs, models.MembershipLog{
				MemberID:   m.ID,
				ActionType: models.ActionStatusUpdate,
				ActionDate: now,
				Remarks:    transitionRemark(next, m.EndDate),
			})
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Model(&models.Member{}).
			Where("id IN ?", ids).
			Update("status", models.StatusExpired).Error; err != nil {
			return err
		}
		if err := tx.CreateInBatches(&logs, 100).Error; err != nil {
			return err
		}
		transitioned = len(ids)
		return nil
	})
	if err != nil {
		return 0, classifyTxError("expiry sweep", err)
	}

	s.metrics.sweptMembers(transitioned)
	if transitioned > 0 {
		logger.Infof("[Sweep] Marked %d member(s) as expired", transitioned)
	}
	return transitioned, nil
}

// StartScheduler runs Sweep on the given cron spec (e.g. "@every 1h").
func (s *SweepService) StartScheduler(spec string) error {
	s.cronScheduler = cron.New()

	if _, err := s.cronScheduler.AddFunc(spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			logger.Errorf("[Sweep] Scheduled sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	s.cronScheduler.Start()
	logger.Infof("[Sweep] Scheduler started (cron: %s)", spec)
	return nil
}

func (s *SweepService) StopScheduler() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}
