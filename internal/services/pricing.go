package services

import (
	"context"
	"errors"
	"time"

	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PricingService struct {
	db  *gorm.DB
	cal *Calendar
}

func NewPricingService(db *gorm.DB, cal *Calendar) *PricingService {
	return &PricingService{db: db, cal: cal}
}

type PriceEntry struct {
	MemberType    models.Category `json:"member_type"`
	PlanType      models.Plan     `json:"plan_type"`
	Price         decimal.Decimal `json:"price"`
	EffectiveDate *time.Time      `json:"effective_date"`
	Configured    bool            `json:"configured"`
}

type SetPriceRequest struct {
	MemberType string          `json:"member_type" binding:"required"`
	PlanType   string          `json:"plan_type" binding:"required"`
	Price      decimal.Decimal `json:"price"`
}

// Resolve returns the latest effective price for (category, plan).
// A missing price list entry yields zero, not an error; callers must surface it.
func (s *PricingService) Resolve(ctx context.Context, category models.Category, plan models.Plan) (decimal.Decimal, error) {
	return resolvePrice(s.db.WithContext(ctx), category, plan)
}

func resolvePrice(db *gorm.DB, category models.Category, plan models.Plan) (decimal.Decimal, error) {
	var row models.GymPricing
	err := db.Where("member_type = ? AND plan_type = ?", category, plan).
		Order("effective_date DESC, id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return row.Price, nil
}

// List returns the authoritative price for every (category, plan) pair in
// reporting order, including pairs with no price configured.
func (s *PricingService) List(ctx context.Context) ([]PriceEntry, error) {
	var rows []models.GymPricing
	if err := s.db.WithContext(ctx).
		Order("effective_date DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	type key struct {
		c models.Category
		p models.Plan
	}
	latest := make(map[key]models.GymPricing)
	for _, r := range rows {
		k := key{r.MemberType, r.PlanType}
		if _, seen := latest[k]; !seen {
			latest[k] = r
		}
	}

	entries := make([]PriceEntry, 0, len(models.Categories)*len(models.Plans))
	for _, c := range models.Categories {
		for _, p := range models.Plans {
			e := PriceEntry{MemberType: c, PlanType: p, Price: decimal.Zero}
			if r, ok := latest[key{c, p}]; ok {
				d := r.EffectiveDate
				e.Price = r.Price
				e.EffectiveDate = &d
				e.Configured = true
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// SetPrice adds a new price list entry effective today and records the change.
// Prices already charged to members are not touched.
func (s *PricingService) SetPrice(ctx context.Context, req *SetPriceRequest) (*models.PriceHistory, error) {
	category, ok := models.ParseCategory(req.MemberType)
	if !ok {
		return nil, &ValidationError{Field: "member_type", Message: "must be Student, Faculty or Outsider"}
	}
	plan, ok := models.ParsePlan(req.PlanType)
	if !ok {
		return nil, &ValidationError{Field: "plan_type", Message: "must be Daily, Monthly or Annual"}
	}
	if req.Price.IsNegative() {
		return nil, &ValidationError{Field: "price", Message: "must not be negative"}
	}

	var history models.PriceHistory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := resolvePrice(tx, category, plan)
		if err != nil {
			return err
		}

		entry := models.GymPricing{
			MemberType:    category,
			PlanType:      plan,
			Price:         req.Price,
			EffectiveDate: s.cal.Today(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		history = models.PriceHistory{
			MemberType: category,
			PlanType:   plan,
			OldPrice:   old,
			NewPrice:   req.Price,
			ChangedAt:  s.cal.Now(),
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, classifyTxError("set price", err)
	}
	return &history, nil
}

// History returns the most recent price changes, newest first.
func (s *PricingService) History(ctx context.Context, limit int) ([]models.PriceHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.PriceHistory
	err := s.db.WithContext(ctx).
		Order("changed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
