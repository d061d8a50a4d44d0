package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices render as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Admin represents a back-office operator
type Admin struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Member represents a person holding a gym membership.
// StartDate and EndDate are calendar dates stored as UTC midnight.
type Member struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UniqueCode       string          `gorm:"uniqueIndex;size:10;not null" json:"unique_code"`
	FirstName        string          `gorm:"size:100;not null" json:"first_name"`
	LastName         string          `gorm:"size:100;not null" json:"last_name"`
	Age              *int            `json:"age"`
	Gender           string          `gorm:"size:10" json:"gender"`
	MemberType       Category        `gorm:"size:20;not null;index" json:"member_type"`
	StudentNumber    string          `gorm:"size:20" json:"student_number"`
	GymPlan          Plan            `gorm:"size:20;not null" json:"gym_plan"`
	Email            string          `gorm:"size:150;index" json:"email"`
	ContactNumber    string          `gorm:"size:20" json:"contact_number"`
	Address          string          `gorm:"size:255" json:"address"`
	StartDate        time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate          time.Time       `gorm:"type:date;not null;index" json:"end_date"`
	Status           Status          `gorm:"size:20;not null;default:Active;index" json:"status"`
	ManualActive     bool            `gorm:"not null;default:false" json:"manual_active"` // admin forced Active; never auto-expired
	DateRegistered   time.Time       `gorm:"not null;index" json:"date_registered"`
	PricePaid        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price_paid"`
	PasswordHash     string          `gorm:"size:255" json:"-"` // empty until the account is activated
	IsSelfRegistered bool            `gorm:"default:false" json:"is_self_registered"`
	Logs             []MembershipLog `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// FullName returns "First Last".
func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// HasAccount reports whether the member can log in.
func (m *Member) HasAccount() bool {
	return m.PasswordHash != ""
}

// MembershipLog is an append-only audit entry owned by a member
type MembershipLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MemberID   uint      `gorm:"index;not null" json:"member_id"`
	ActionType string    `gorm:"size:50;not null" json:"action_type"`
	ActionDate time.Time `gorm:"index;not null" json:"action_date"`
	Remarks    string    `gorm:"size:255" json:"remarks"`
}

// GymPricing is one effective-dated price list entry. The latest
// effective date per (member_type, plan_type) is authoritative.
type GymPricing struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	MemberType    Category        `gorm:"size:20;not null;index:idx_pricing_key,priority:1" json:"member_type"`
	PlanType      Plan            `gorm:"size:20;not null;index:idx_pricing_key,priority:2" json:"plan_type"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	EffectiveDate time.Time       `gorm:"type:date;not null;index:idx_pricing_key,priority:3" json:"effective_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PriceHistory records every price list change
type PriceHistory struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MemberType Category        `gorm:"size:20;not null" json:"member_type"`
	PlanType   Plan            `gorm:"size:20;not null" json:"plan_type"`
	OldPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"old_price"`
	NewPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"new_price"`
	ChangedAt  time.Time       `gorm:"index" json:"changed_at"`
}

// Workout is a logged exercise session
type Workout struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MemberID        uint      `gorm:"index;not null" json:"member_id"`
	WorkoutType     string    `gorm:"size:50" json:"workout_type"`
	WorkoutDate     time.Time `gorm:"index;not null" json:"workout_date"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	Notes           string    `gorm:"size:255" json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

// MemberCodeSequence is the high-water mark of issued unique codes per prefix.
// Codes are never reissued, even after the member holding the highest one is deleted.
type MemberCodeSequence struct {
	Prefix    string    `gorm:"primaryKey;size:3" json:"prefix"`
	LastValue int       `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Admin) TableName() string              { return "admins" }
func (Member) TableName() string             { return "members" }
func (MembershipLog) TableName() string      { return "membership_logs" }
func (GymPricing) TableName() string         { return "gym_pricing" }
func (PriceHistory) TableName() string       { return "price_history" }
func (Workout) TableName() string            { return "workouts" }
func (MemberCodeSequence) TableName() string { return "member_code_sequences" }
