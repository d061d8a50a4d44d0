package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/nwssu/gymdesk/backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthEnv(t *testing.T) *testEnv {
	t.Helper()
	utils.SetJWTSecret("test-secret")
	return newTestEnv(t)
}

func TestCreateAdminIfNotExists(t *testing.T) {
	env := newAuthEnv(t)

	require.NoError(t, env.auth.CreateAdminIfNotExists("admin", "admin123"))
	require.NoError(t, env.auth.CreateAdminIfNotExists("other", "other123"))

	var count int64
	env.db.Model(&models.Admin{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAdminLogin(t *testing.T) {
	env := newAuthEnv(t)
	require.NoError(t, env.auth.CreateAdminIfNotExists("admin", "admin123"))
	ctx := context.Background()

	resp, err := env.auth.AdminLogin(ctx, &AdminLoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.Admin.Username)

	claims, err := utils.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, utils.RoleAdmin, claims.Role)
	assert.Equal(t, resp.Admin.ID, claims.UserID)

	_, err = env.auth.AdminLogin(ctx, &AdminLoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.AdminLogin(ctx, &AdminLoginRequest{Username: "ghost", Password: "admin123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemberLogin_RequiresActivation(t *testing.T) {
	env := newAuthEnv(t)
	env.insertMember(t, models.Member{Email: "walkin@example.com"})

	_, err := env.auth.MemberLogin(context.Background(), &MemberLoginRequest{Email: "walkin@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrAccountNotActive)
}

func TestActivationFlow(t *testing.T) {
	env := newAuthEnv(t)
	env.seedPrices(t)
	ctx := context.Background()

	res, err := env.members.Register(ctx, &RegisterMemberRequest{
		FirstName: "Walk", LastName: "In", MemberType: "Faculty", GymPlan: "Monthly", Email: "walk@example.com",
	})
	require.NoError(t, err)
	code := res.Member.UniqueCode

	candidate, err := env.auth.VerifyActivation(ctx, &ActivationVerifyRequest{Email: "WALK@example.com", MemberCode: "fct-0001"})
	require.NoError(t, err)
	assert.Equal(t, "Walk In", candidate.MemberName)
	assert.Equal(t, code, candidate.UniqueCode)

	err = env.auth.Activate(ctx, &ActivateRequest{
		Email: "walk@example.com", MemberCode: code, Password: "secret1", ConfirmPassword: "secret2",
	})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))

	require.NoError(t, env.auth.Activate(ctx, &ActivateRequest{
		Email: "walk@example.com", MemberCode: code, Password: "secret1", ConfirmPassword: "secret1",
	}))
	assert.EqualValues(t, 1, env.countLogs(t, res.Member.ID, models.ActionAccountActivated))

	_, err = env.auth.VerifyActivation(ctx, &ActivationVerifyRequest{Email: "walk@example.com", MemberCode: code})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "member_code", ve.Field)

	login, err := env.auth.MemberLogin(ctx, &MemberLoginRequest{Email: "walk@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, login.Expired)

	claims, err := utils.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, utils.RoleMember, claims.Role)
	assert.Equal(t, res.Member.ID, claims.UserID)

	_, err = env.auth.MemberLogin(ctx, &MemberLoginRequest{Email: "walk@example.com", Password: "wrong12"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyActivation_UnknownMember(t *testing.T) {
	env := newAuthEnv(t)

	_, err := env.auth.VerifyActivation(context.Background(), &ActivationVerifyRequest{Email: "no@example.com", MemberCode: "STU-0001"})
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf), "VerifyActivation() error = %v, expected NotFoundError", err)
}

func TestMemberLogin_ExpiredMembershipFlagged(t *testing.T) {
	env := newAuthEnv(t)
	hash, err := utils.HashPassword("secret1")
	require.NoError(t, err)
	m := env.insertMember(t, models.Member{
		Email:        "late@example.com",
		PasswordHash: hash,
		EndDate:      env.date(-2),
	})

	login, err := env.auth.MemberLogin(context.Background(), &MemberLoginRequest{Email: "late@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, login.Expired)
	assert.Equal(t, models.StatusExpired, login.Member.Status)
	assert.EqualValues(t, 1, env.countLogs(t, m.ID, models.ActionStatusUpdate))
}
