package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_DefaultPriceList(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrices(t)
	ctx := context.Background()

	tests := []struct {
		category models.Category
		plan     models.Plan
		want     string
	}{
		{models.CategoryStudent, models.PlanMonthly, "500"},
		{models.CategoryFaculty, models.PlanDaily, "40"},
		{models.CategoryOutsider, models.PlanDaily, "60"},
		{models.CategoryOutsider, models.PlanMonthly, "800"},
		{models.CategoryOutsider, models.PlanAnnual, "0"},
	}
	for _, tt := range tests {
		got, err := env.pricing.Resolve(ctx, tt.category, tt.plan)
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"Resolve(%s, %s) = %s, expected %s", tt.category, tt.plan, got, tt.want)
	}
}

func TestResolve_LatestEffectiveDateWins(t *testing.T) {
	env := newTestEnv(t)
	rows := []models.GymPricing{
		{MemberType: models.CategoryFaculty, PlanType: models.PlanMonthly, Price: decimal.NewFromInt(450), EffectiveDate: env.date(-60)},
		{MemberType: models.CategoryFaculty, PlanType: models.PlanMonthly, Price: decimal.NewFromInt(520), EffectiveDate: env.date(-1)},
		{MemberType: models.CategoryFaculty, PlanType: models.PlanMonthly, Price: decimal.NewFromInt(480), EffectiveDate: env.date(-30)},
	}
	require.NoError(t, env.db.Create(&rows).Error)

	got, err := env.pricing.Resolve(context.Background(), models.CategoryFaculty, models.PlanMonthly)
	require.NoError(t, err)
	assert.Equal(t, "520", got.String())
}

func TestPricingList_CoversEveryPair(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrices(t)

	entries, err := env.pricing.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 9)

	assert.Equal(t, models.CategoryStudent, entries[0].MemberType)
	assert.Equal(t, models.PlanDaily, entries[0].PlanType)
	assert.True(t, entries[0].Configured)

	annual := entries[8]
	assert.Equal(t, models.CategoryOutsider, annual.MemberType)
	assert.Equal(t, models.PlanAnnual, annual.PlanType)
	assert.False(t, annual.Configured)
	assert.Nil(t, annual.EffectiveDate)
	assert.True(t, annual.Price.IsZero())
}

func TestSetPrice_RecordsHistoryAndKeepsPaidPrices(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrices(t)
	ctx := context.Background()

	res, err := env.members.Register(ctx, &RegisterMemberRequest{
		FirstName: "Lia", LastName: "Santos", MemberType: "Student", GymPlan: "Monthly",
	})
	require.NoError(t, err)
	require.Equal(t, "500", res.Member.PricePaid.String())

	history, err := env.pricing.SetPrice(ctx, &SetPriceRequest{
		MemberType: "Student", PlanType: "Monthly", Price: decimal.NewFromInt(550),
	})
	require.NoError(t, err)
	assert.Equal(t, "500", history.OldPrice.String())
	assert.Equal(t, "550", history.NewPrice.String())

	price, err := env.pricing.Resolve(ctx, models.CategoryStudent, models.PlanMonthly)
	require.NoError(t, err)
	assert.Equal(t, "550", price.String())

	assert.Equal(t, "500", env.reload(t, res.Member.ID).PricePaid.String())

	rows, err := env.pricing.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.CategoryStudent, rows[0].MemberType)
}

func TestSetPrice_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   SetPriceRequest
		field string
	}{
		{"bad category", SetPriceRequest{MemberType: "Alumni", PlanType: "Daily", Price: decimal.NewFromInt(1)}, "member_type"},
		{"bad plan", SetPriceRequest{MemberType: "Student", PlanType: "Weekly", Price: decimal.NewFromInt(1)}, "plan_type"},
		{"negative", SetPriceRequest{MemberType: "Student", PlanType: "Daily", Price: decimal.NewFromInt(-5)}, "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.pricing.SetPrice(ctx, &tt.req)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "SetPrice() error = %v, expected ValidationError", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	var n int64
	env.db.Model(&models.PriceHistory{}).Count(&n)
	assert.Zero(t, n)
}

func TestResolve_PropagatesStorageError(t *testing.T) {
	db, mock := setupMockDB(t)
	cal := NewCalendar(newFakeClock(testNow).Now, testZone)
	svc := NewPricingService(db, cal)

	mock.ExpectQuery(`SELECT \* FROM "gym_pricing"`).WillReturnError(errors.New("connection reset"))

	_, err := svc.Resolve(context.Background(), models.CategoryStudent, models.PlanDaily)
	if err == nil {
		t.Fatal("Resolve() expected error")
	}
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
