package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nwssu/gymdesk/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Evaluate applies the automatic lifecycle rules to a member as of today.
// It returns the resulting status and whether it differs from the input.
//
//   - past end_date: Expired, unless the member was manually set Active
//   - Expired and end_date not yet passed: Active again
//   - otherwise unchanged
//
// Inactive is never entered automatically.
func Evaluate(status models.Status, manualActive bool, endDate, today time.Time) (models.Status, bool) {
	if today.After(endDate) {
		if status == models.StatusActive && manualActive {
			return status, false
		}
		if status != models.StatusExpired {
			return models.StatusExpired, true
		}
		return status, false
	}
	if status == models.StatusExpired {
		return models.StatusActive, true
	}
	return status, false
}

// DaysRemaining counts whole days from today to endDate, never negative.
func DaysRemaining(endDate, today time.Time) int {
	if !endDate.After(today) {
		return 0
	}
	return int(endDate.Sub(today).Hours() / 24)
}

type LifecycleService struct {
	db  *gorm.DB
	cal *Calendar
}

func NewLifecycleService(db *gorm.DB, cal *Calendar) *LifecycleService {
	return &LifecycleService{db: db, cal: cal}
}

// Refresh lazily re-evaluates one member's status, persisting and logging
// any automatic transition in a single transaction.
func (s *LifecycleService) Refresh(ctx context.Context, memberID uint) (*models.Member, error) {
	var member models.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&member, memberID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "member", ID: memberID}
			}
			return err
		}
		_, err := applyTransition(tx, &member, s.cal)
		return err
	})
	if err != nil {
		return nil, classifyTxError("refresh member status", err)
	}
	return &member, nil
}

// applyTransition evaluates member against today and, when the status moves,
// updates the row and appends one Status Update log. member must be locked in tx.
func applyTransition(tx *gorm.DB, member *models.Member, cal *Calendar) (bool, error) {
	next, changed := Evaluate(member.Status, member.ManualActive, member.EndDate, cal.Today())
	if !changed {
		return false, nil
	}

	if err := tx.Model(&models.Member{}).
		Where("id = ?", member.ID).
		Update("status", next).Error; err != nil {
		return false, err
	}

	log := models.MembershipLog{
		MemberID:   member.ID,
		ActionType: models.ActionStatusUpdate,
		ActionDate: cal.Now(),
		Remarks:    transitionRemark(next, member.EndDate),
	}
	if err := tx.Create(&log).Error; err != nil {
		return false, err
	}

	member.Status = next
	return true, nil
}

func transitionRemark(next models.Status, endDate time.Time) string {
	if next == models.StatusExpired {
		return fmt.Sprintf("Automatically marked as expired (end date: %s).", FormatDate(endDate))
	}
	return fmt.Sprintf("Automatically reactivated; membership runs until %s.", FormatDate(endDate))
}
