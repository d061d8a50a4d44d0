package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nwssu/gymdesk/backend/internal/config"
	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/nwssu/gymdesk/backend/internal/utils"
	"github.com/nwssu/gymdesk/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuthService struct {
	db        *gorm.DB
	cal       *Calendar
	lifecycle *LifecycleService
	jwtConfig *config.JWTConfig
}

func NewAuthService(db *gorm.DB, cal *Calendar, lifecycle *LifecycleService, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{
		db:        db,
		cal:       cal,
		lifecycle: lifecycle,
		jwtConfig: jwtCfg,
	}
}

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type MemberLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ActivationVerifyRequest struct {
	Email      string `json:"email" binding:"required"`
	MemberCode string `json:"member_code" binding:"required"`
}

type ActivateRequest struct {
	Email           string `json:"email" binding:"required"`
	MemberCode      string `json:"member_code" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type AdminLoginResponse struct {
	Token    string        `json:"token"`
	ExpireAt time.Time     `json:"expire_at"`
	Admin    *models.Admin `json:"admin"`
}

// MemberLoginResponse reports Expired members as such; they may still sign in
// to see their membership.
type MemberLoginResponse struct {
	Token    string         `json:"token"`
	ExpireAt time.Time      `json:"expire_at"`
	Member   *models.Member `json:"member"`
	Expired  bool           `json:"expired"`
}

type ActivationCandidate struct {
	MemberName string `json:"member_name"`
	UniqueCode string `json:"unique_code"`
}

func (s *AuthService) AdminLogin(ctx context.Context, req *AdminLoginRequest) (*AdminLoginResponse, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", req.Username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(req.Password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, expireAt, err := s.issue(admin.ID, admin.Username, utils.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &AdminLoginResponse{Token: token, ExpireAt: expireAt, Admin: &admin}, nil
}

func (s *AuthService) MemberLogin(ctx context.Context, req *MemberLoginRequest) (*MemberLoginResponse, error) {
	var member models.Member
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !member.HasAccount() {
		return nil, ErrAccountNotActive
	}
	if !utils.CheckPassword(req.Password, member.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	refreshed, err := s.lifecycle.Refresh(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	token, expireAt, err := s.issue(refreshed.ID, refreshed.UniqueCode, utils.RoleMember)
	if err != nil {
		return nil, err
	}
	return &MemberLoginResponse{
		Token:    token,
		ExpireAt: expireAt,
		Member:   refreshed,
		Expired:  refreshed.Status == models.StatusExpired,
	}, nil
}

func (s *AuthService) issue(id uint, name, role string) (string, time.Time, error) {
	hours := s.jwtConfig.ExpireHour
	if hours <= 0 {
		hours = 24
	}
	token, err := utils.GenerateToken(id, name, role, hours)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().Add(time.Duration(hours) * time.Hour), nil
}

// VerifyActivation checks that an admin-created member exists with the given
// email and code and has not set a password yet.
func (s *AuthService) VerifyActivation(ctx context.Context, req *ActivationVerifyRequest) (*ActivationCandidate, error) {
	member, err := s.findForActivation(s.db.WithContext(ctx), req.Email, req.MemberCode)
	if err != nil {
		return nil, err
	}
	return &ActivationCandidate{MemberName: member.FullName(), UniqueCode: member.UniqueCode}, nil
}

// Activate sets the first password of an admin-created member.
func (s *AuthService) Activate(ctx context.Context, req *ActivateRequest) error {
	if err := validatePassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.findForActivation(tx.Clauses(clause.Locking{Strength: "UPDATE"}), req.Email, req.MemberCode)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Member{}).
			Where("id = ?", member.ID).
			Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Create(&models.MembershipLog{
			MemberID:   member.ID,
			ActionType: models.ActionAccountActivated,
			ActionDate: s.cal.Now(),
			Remarks:    "User activated admin-created account.",
		}).Error
	})
	return classifyTxError("activate account", err)
}

func (s *AuthService) findForActivation(db *gorm.DB, email, code string) (*models.Member, error) {
	email = normalizeEmail(email)
	code = strings.ToUpper(strings.TrimSpace(code))
	if email == "" || code == "" {
		return nil, &ValidationError{Message: "email and member code are required"}
	}

	var member models.Member
	if err := db.Where("email = ? AND unique_code = ?", email, code).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "member", ID: code}
		}
		return nil, err
	}
	if member.HasAccount() {
		return nil, &ValidationError{Field: "member_code", Message: "account is already activated, please log in"}
	}
	return &member, nil
}

// CreateAdminIfNotExists seeds the first administrator on an empty admins table.
func (s *AuthService) CreateAdminIfNotExists(username, password string) error {
	var count int64
	if err := s.db.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.Admin{Username: username, PasswordHash: hash}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}
	logger.Infof("[Auth] Created default admin %q", username)
	return nil
}
