package models

import "time"

// Category is the member classification. It drives pricing and the unique code prefix.
type Category string

const (
	CategoryStudent  Category = "Student"
	CategoryFaculty  Category = "Faculty"
	CategoryOutsider Category = "Outsider"
	// CategoryUnknown never reaches storage; it only names the fallback prefix.
	CategoryUnknown Category = ""
)

// Categories lists the valid categories in their fixed reporting order.
var Categories = []Category{CategoryStudent, CategoryFaculty, CategoryOutsider}

// ParseCategory returns CategoryUnknown and false for anything outside the enumeration.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryStudent, CategoryFaculty, CategoryOutsider:
		return Category(s), true
	}
	return CategoryUnknown, false
}

// CodePrefix maps a category to its three-letter unique code prefix.
func (c Category) CodePrefix() string {
	switch c {
	case CategoryStudent:
		return "STU"
	case CategoryFaculty:
		return "FCT"
	case CategoryOutsider:
		return "OTD"
	default:
		return "MBR"
	}
}

// Plan is the billing duration of a membership.
type Plan string

const (
	PlanDaily   Plan = "Daily"
	PlanMonthly Plan = "Monthly"
	PlanAnnual  Plan = "Annual"
)

var Plans = []Plan{PlanDaily, PlanMonthly, PlanAnnual}

func ParsePlan(s string) (Plan, bool) {
	switch Plan(s) {
	case PlanDaily, PlanMonthly, PlanAnnual:
		return Plan(s), true
	}
	return "", false
}

// DurationDays is the length of a membership period for the plan.
func (p Plan) DurationDays() int {
	switch p {
	case PlanDaily:
		return 1
	case PlanMonthly:
		return 30
	case PlanAnnual:
		return 365
	}
	return 0
}

// EndDate derives the period end from a start date.
func (p Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, 0, p.DurationDays())
}

// Status is the membership lifecycle state.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	StatusExpired  Status = "Expired"
)

var Statuses = []Status{StatusActive, StatusInactive, StatusExpired}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusExpired:
		return Status(s), true
	}
	return "", false
}

// Membership log action types.
const (
	ActionRegistered       = "Registered"
	ActionUpdated          = "Updated"
	ActionStatusUpdate     = "Status Update"
	ActionUserRegistration = "User Registration"
	ActionAccountActivated = "Account Activated"
)

// Gender values accepted on registration.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)
