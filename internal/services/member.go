package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/nwssu/gymdesk/backend/internal/config"
	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/nwssu/gymdesk/backend/internal/utils"
	"github.com/nwssu/gymdesk/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxAllocationAttempts bounds retries after a unique code collision.
const MaxAllocationAttempts = 3

const MinPasswordLength = 6

var validate = validator.New()

type MemberService struct {
	db        *gorm.DB
	cal       *Calendar
	allocator *IdentifierAllocator
	sweeper   *SweepService
	lifecycle *LifecycleService
	metrics   *Metrics
	cfg       *config.MembershipConfig
}

func NewMemberService(db *gorm.DB, cal *Calendar, allocator *IdentifierAllocator, sweeper *SweepService,
	lifecycle *LifecycleService, metrics *Metrics, cfg *config.MembershipConfig) *MemberService {
	return &MemberService{
		db:        db,
		cal:       cal,
		allocator: allocator,
		sweeper:   sweeper,
		lifecycle: lifecycle,
		metrics:   metrics,
		cfg:       cfg,
	}
}

type RegisterMemberRequest struct {
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	Age           *int   `json:"age"`
	Gender        string `json:"gender"`
	MemberType    string `json:"member_type" binding:"required"`
	StudentNumber string `json:"student_number"`
	GymPlan       string `json:"gym_plan" binding:"required"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
	StartDate     string `json:"start_date"` // YYYY-MM-DD, defaults to today
	EndDate       string `json:"end_date"`   // YYYY-MM-DD, defaults to start + plan duration
}

type SelfRegisterRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Age             int    `json:"age"`
	Gender          string `json:"gender"`
	MemberType      string `json:"member_type"`
	StudentNumber   string `json:"student_number"`
	GymPlan         string `json:"gym_plan"`
	ContactNumber   string `json:"contact_number"`
	Address         string `json:"address"`
}

// UpdateMemberRequest is a partial edit; nil fields are left unchanged.
type UpdateMemberRequest struct {
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	Age           *int    `json:"age"`
	Gender        *string `json:"gender"`
	MemberType    *string `json:"member_type"`
	StudentNumber *string `json:"student_number"`
	GymPlan       *string `json:"gym_plan"`
	Email         *string `json:"email"`
	ContactNumber *string `json:"contact_number"`
	Address       *string `json:"address"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	Status        *string `json:"status"`
}

type UpdateProfileRequest struct {
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
}

type MemberListRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	Search     string `form:"search"`
	MemberType string `form:"member_type"`
	Status     string `form:"status"`
}

type MemberListResponse struct {
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Items    []models.Member `json:"items"`
}

// RegisterResult carries the stored member and, when no price was configured
// for the member's category and plan, a warning the caller must show.
type RegisterResult struct {
	Member       *models.Member `json:"member"`
	PriceWarning string         `json:"price_warning,omitempty"`
}

// Register creates a member on behalf of an administrator.
func (s *MemberService) Register(ctx context.Context, req *RegisterMemberRequest) (*RegisterResult, error) {
	member, err := s.buildAdminMember(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, member.Email, 0); err != nil {
		return nil, err
	}

	return s.create(ctx, member, models.ActionRegistered, func(m *models.Member) string {
		return fmt.Sprintf("Member %s registered as %s.", m.FullName(), m.UniqueCode)
	})
}

func (s *MemberService) buildAdminMember(req *RegisterMemberRequest) (*models.Member, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return nil, &ValidationError{Field: "name", Message: "first name and last name are required"}
	}
	category, ok := models.ParseCategory(req.MemberType)
	if !ok {
		return nil, &ValidationError{Field: "member_type", Message: "must be Student, Faculty or Outsider"}
	}
	plan, ok := models.ParsePlan(req.GymPlan)
	if !ok {
		return nil, &ValidationError{Field: "gym_plan", Message: "must be Daily, Monthly or Annual"}
	}
	if err := validateAge(req.Age); err != nil {
		return nil, err
	}
	if err := validateGender(req.Gender); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	if email != "" {
		if err := validateEmail(email); err != nil {
			return nil, err
		}
	}

	start := s.cal.Today()
	if req.StartDate != "" {
		d, err := ParseDate("start_date", req.StartDate)
		if err != nil {
			return nil, err
		}
		start = d
	}
	end := plan.EndDate(start)
	if req.EndDate != "" {
		d, err := ParseDate("end_date", req.EndDate)
		if err != nil {
			return nil, err
		}
		end = d
	}
	if end.Before(start) {
		return nil, &ValidationError{Field: "end_date", Message: "must not be before start_date"}
	}

	member := &models.Member{
		FirstName:     firstName,
		LastName:      lastName,
		Age:           req.Age,
		Gender:        req.Gender,
		MemberType:    category,
		GymPlan:       plan,
		Email:         email,
		ContactNumber: strings.TrimSpace(req.ContactNumber),
		Address:       strings.TrimSpace(req.Address),
		StartDate:     start,
		EndDate:       end,
		Status:        models.StatusActive,
	}
	if category == models.CategoryStudent {
		member.StudentNumber = strings.TrimSpace(req.StudentNumber)
	}
	return member, nil
}

// SelfRegister creates a member account from the public registration form.
func (s *MemberService) SelfRegister(ctx context.Context, req *SelfRegisterRequest) (*RegisterResult, error) {
	member, err := s.buildSelfRegisteredMember(req)
	if err != nil {
		return nil, err
	}

	var existing models.Member
	err = s.db.WithContext(ctx).Where("email = ?", member.Email).First(&existing).Error
	switch {
	case err == nil && existing.HasAccount():
		return nil, &ValidationError{Field: "email", Message: "email already registered, please log in instead"}
	case err == nil:
		return nil, &ValidationError{Field: "email", Message: "email exists in our records, activate your account instead"}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	member.PasswordHash = hash

	return s.create(ctx, member, models.ActionUserRegistration, func(m *models.Member) string {
		return fmt.Sprintf("User self-registered with %s plan.", m.GymPlan)
	})
}

func (s *MemberService) buildSelfRegisteredMember(req *SelfRegisterRequest) (*models.Member, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return nil, &ValidationError{Field: "name", Message: "first name and last name are required"}
	}
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}
	age := req.Age
	if age < 1 || age > 120 {
		return nil, &ValidationError{Field: "age", Message: "must be between 1 and 120"}
	}
	if req.Gender != models.GenderMale && req.Gender != models.GenderFemale {
		return nil, &ValidationError{Field: "gender", Message: "must be Male or Female"}
	}
	category, ok := models.ParseCategory(req.MemberType)
	if !ok {
		return nil, &ValidationError{Field: "member_type", Message: "must be Student, Faculty or Outsider"}
	}
	studentNumber := strings.TrimSpace(req.StudentNumber)
	if category == models.CategoryStudent && studentNumber == "" {
		return nil, &ValidationError{Field: "student_number", Message: "is required for students"}
	}
	plan, ok := models.ParsePlan(req.GymPlan)
	if !ok {
		return nil, &ValidationError{Field: "gym_plan", Message: "must be Daily, Monthly or Annual"}
	}
	if plan == models.PlanAnnual && !s.cfg.AllowAnnualSelfRegistration {
		return nil, &ValidationError{Field: "gym_plan", Message: "annual plans are not available for online registration"}
	}

	start := s.cal.Today()
	member := &models.Member{
		FirstName:        firstName,
		LastName:         lastName,
		Email:            email,
		Age:              &age,
		Gender:           req.Gender,
		MemberType:       category,
		GymPlan:          plan,
		ContactNumber:    strings.TrimSpace(req.ContactNumber),
		Address:          strings.TrimSpace(req.Address),
		StartDate:        start,
		EndDate:          plan.EndDate(start),
		Status:           models.StatusActive,
		IsSelfRegistered: true,
	}
	if category == models.CategoryStudent {
		member.StudentNumber = studentNumber
	}
	return member, nil
}

// create allocates a code, locks in the current price and inserts the member
// with its first log entry in one transaction, retrying on code collisions.
func (s *MemberService) create(ctx context.Context, member *models.Member, action string, remark func(*models.Member) string) (*RegisterResult, error) {
	var err error
	for attempt := 1; attempt <= MaxAllocationAttempts; attempt++ {
		member.ID = 0
		err = s.allocator.WithPrefixLock(member.MemberType, func() error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				code, err := s.allocator.Allocate(tx, member.MemberType)
				if err != nil {
					return err
				}
				price, err := resolvePrice(tx, member.MemberType, member.GymPlan)
				if err != nil {
					return err
				}

				member.UniqueCode = code
				member.PricePaid = price
				member.DateRegistered = s.cal.Now()
				if err := tx.Create(member).Error; err != nil {
					return err
				}

				return tx.Create(&models.MembershipLog{
					MemberID:   member.ID,
					ActionType: action,
					ActionDate: s.cal.Now(),
					Remarks:    remark(member),
				}).Error
			})
		})
		err = classifyTxError("register member", err)
		if !isConflict(err) {
			break
		}
		s.metrics.allocationConflict()
		logger.Warnf("[Allocator] Code collision for %s (attempt %d/%d): %v",
			member.MemberType.CodePrefix(), attempt, MaxAllocationAttempts, err)
	}
	if err != nil {
		return nil, err
	}

	result := &RegisterResult{Member: member}
	if member.PricePaid.IsZero() {
		result.PriceWarning = fmt.Sprintf("no price configured for %s %s plan; registered with a price of 0.00",
			member.MemberType, member.GymPlan)
		logger.Warnf("[Member] %s registered without a configured price (%s/%s)",
			member.UniqueCode, member.MemberType, member.GymPlan)
	}
	return result, nil
}

// Update applies an administrator's edit. A category change issues a new
// code in the same transaction; an explicit status assignment sets or clears
// the manual Active override.
func (s *MemberService) Update(ctx context.Context, id uint, req *UpdateMemberRequest) (*models.Member, error) {
	var newCategory models.Category
	if req.MemberType != nil {
		c, ok := models.ParseCategory(*req.MemberType)
		if !ok {
			return nil, &ValidationError{Field: "member_type", Message: "must be Student, Faculty or Outsider"}
		}
		newCategory = c
	}
	var newStatus models.Status
	if req.Status != nil {
		st, ok := models.ParseStatus(*req.Status)
		if !ok {
			return nil, &ValidationError{Field: "status", Message: "must be Active, Inactive or Expired"}
		}
		newStatus = st
	}
	if req.Email != nil {
		if err := s.ensureEmailFree(ctx, normalizeEmail(*req.Email), id); err != nil {
			return nil, err
		}
	}

	var member models.Member
	var err error
	for attempt := 1; attempt <= MaxAllocationAttempts; attempt++ {
		member = models.Member{}
		edit := func() error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return s.applyEdit(tx, id, req, newCategory, newStatus, &member)
			})
		}
		if newCategory != models.CategoryUnknown {
			err = s.allocator.WithPrefixLock(newCategory, edit)
		} else {
			err = edit()
		}
		err = classifyTxError("update member", err)
		if !isConflict(err) {
			break
		}
		s.metrics.allocationConflict()
		logger.Warnf("[Allocator] Code collision on re-categorization (attempt %d/%d): %v", attempt, MaxAllocationAttempts, err)
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *MemberService) applyEdit(tx *gorm.DB, id uint, req *UpdateMemberRequest, newCategory models.Category,
	newStatus models.Status, member *models.Member) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "member", ID: id}
		}
		return err
	}

	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return &ValidationError{Field: "first_name", Message: "must not be empty"}
		}
		member.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if strings.TrimSpace(*req.LastName) == "" {
			return &ValidationError{Field: "last_name", Message: "must not be empty"}
		}
		member.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Age != nil {
		if err := validateAge(req.Age); err != nil {
			return err
		}
		member.Age = req.Age
	}
	if req.Gender != nil {
		if err := validateGender(*req.Gender); err != nil {
			return err
		}
		member.Gender = *req.Gender
	}
	if req.GymPlan != nil {
		plan, ok := models.ParsePlan(*req.GymPlan)
		if !ok {
			return &ValidationError{Field: "gym_plan", Message: "must be Daily, Monthly or Annual"}
		}
		member.GymPlan = plan
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != "" {
			if err := validateEmail(email); err != nil {
				return err
			}
		}
		member.Email = email
	}
	if req.ContactNumber != nil {
		member.ContactNumber = strings.TrimSpace(*req.ContactNumber)
	}
	if req.Address != nil {
		member.Address = strings.TrimSpace(*req.Address)
	}
	if req.StartDate != nil {
		d, err := ParseDate("start_date", *req.StartDate)
		if err != nil {
			return err
		}
		member.StartDate = d
		if req.EndDate == nil {
			member.EndDate = member.GymPlan.EndDate(d)
		}
	}
	if req.EndDate != nil {
		d, err := ParseDate("end_date", *req.EndDate)
		if err != nil {
			return err
		}
		member.EndDate = d
	}
	if member.EndDate.Before(member.StartDate) {
		return &ValidationError{Field: "end_date", Message: "must not be before start_date"}
	}

	var notes []string
	if newCategory != models.CategoryUnknown && newCategory != member.MemberType {
		code, err := s.allocator.Allocate(tx, newCategory)
		if err != nil {
			return err
		}
		notes = append(notes, fmt.Sprintf("type %s -> %s, code %s -> %s", member.MemberType, newCategory, member.UniqueCode, code))
		member.MemberType = newCategory
		member.UniqueCode = code
	}
	if member.MemberType == models.CategoryStudent {
		if req.StudentNumber != nil {
			member.StudentNumber = strings.TrimSpace(*req.StudentNumber)
		}
	} else {
		member.StudentNumber = ""
	}

	if newStatus != "" {
		if newStatus != member.Status {
			notes = append(notes, fmt.Sprintf("status %s -> %s", member.Status, newStatus))
		}
		member.Status = newStatus
		member.ManualActive = newStatus == models.StatusActive
	}

	if err := tx.Save(member).Error; err != nil {
		return err
	}

	remark := fmt.Sprintf("Updated information for %s.", member.FullName())
	if len(notes) > 0 {
		remark = fmt.Sprintf("Updated information for %s (%s).", member.FullName(), strings.Join(notes, "; "))
	}
	if err := tx.Create(&models.MembershipLog{
		MemberID:   member.ID,
		ActionType: models.ActionUpdated,
		ActionDate: s.cal.Now(),
		Remarks:    truncate(remark, 255),
	}).Error; err != nil {
		return err
	}

	// Without an explicit status the new dates may expire or revive the member.
	if newStatus == "" {
		if _, err := applyTransition(tx, member, s.cal); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a member together with their logs and workouts.
func (s *MemberService) Delete(ctx context.Context, id uint) error {
	var member models.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&member, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "member", ID: id}
			}
			return err
		}
		if err := tx.Where("member_id = ?", id).Delete(&models.MembershipLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ?", id).Delete(&models.Workout{}).Error; err != nil {
			return err
		}
		return tx.Delete(&member).Error
	})
	if err != nil {
		return classifyTxError("delete member", err)
	}

	logger.Info().
		Str("component", "Member").
		Uint("member_id", member.ID).
		Str("unique_code", member.UniqueCode).
		Str("name", member.FullName()).
		Msg("member deleted")
	return nil
}

// Get returns a member after lazily refreshing their status.
func (s *MemberService) Get(ctx context.Context, id uint) (*models.Member, error) {
	return s.lifecycle.Refresh(ctx, id)
}

// List sweeps expired memberships, then returns a filtered page of members.
func (s *MemberService) List(ctx context.Context, req *MemberListRequest) (*MemberListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Member{})
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR unique_code LIKE ? OR email LIKE ?", like, like, like, like)
	}
	if req.MemberType != "" {
		c, ok := models.ParseCategory(req.MemberType)
		if !ok {
			return nil, &ValidationError{Field: "member_type", Message: "must be Student, Faculty or Outsider"}
		}
		query = query.Where("member_type = ?", c)
	}
	if req.Status != "" {
		st, ok := models.ParseStatus(req.Status)
		if !ok {
			return nil, &ValidationError{Field: "status", Message: "must be Active, Inactive or Expired"}
		}
		query = query.Where("status = ?", st)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var members []models.Member
	if err := query.Order("id DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&members).Error; err != nil {
		return nil, err
	}

	return &MemberListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    members,
	}, nil
}

// UpdateProfile lets a member change their own contact details.
func (s *MemberService) UpdateProfile(ctx context.Context, id uint, req *UpdateProfileRequest) (*models.Member, error) {
	var member models.Member
	db := s.db.WithContext(ctx)
	if err := db.First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "member", ID: id}
		}
		return nil, err
	}

	member.ContactNumber = strings.TrimSpace(req.ContactNumber)
	member.Address = strings.TrimSpace(req.Address)
	if err := db.Model(&member).Updates(map[string]interface{}{
		"contact_number": member.ContactNumber,
		"address":        member.Address,
	}).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *MemberService) ensureEmailFree(ctx context.Context, email string, exceptID uint) error {
	if email == "" {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("email = ? AND id <> ?", email, exceptID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ValidationError{Field: "email", Message: "is already used by another member"}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	return nil
}

func validatePassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}
	if password != confirm {
		return &ValidationError{Field: "confirm_password", Message: "passwords do not match"}
	}
	return nil
}

func validateAge(age *int) error {
	if age != nil && (*age < 1 || *age > 120) {
		return &ValidationError{Field: "age", Message: "must be between 1 and 120"}
	}
	return nil
}

func validateGender(gender string) error {
	switch gender {
	case "", models.GenderMale, models.GenderFemale:
		return nil
	}
	return &ValidationError{Field: "gender", Message: "must be Male or Female"}
}

// truncate shortens s to at most max characters without splitting a rune.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
