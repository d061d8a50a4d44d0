package services

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nwssu/gymdesk/backend/internal/config"
	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testZone stands in for the organizational timezone (UTC+8, no DST).
var testZone = time.FixedZone("PHT", 8*60*60)

// testNow is 2024-06-15 10:00 local, 02:00 UTC.
var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, testZone)

// fakeClock is a settable Clock for tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// setupTestDB opens a private in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// setupMockDB wires sqlmock behind the postgres dialector.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	var conn *sql.DB
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       conn,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}
	return db, mock
}

// testEnv bundles the services over one database and clock.
type testEnv struct {
	db        *gorm.DB
	clock     *fakeClock
	cal       *Calendar
	allocator *IdentifierAllocator
	pricing   *PricingService
	lifecycle *LifecycleService
	sweeper   *SweepService
	members   *MemberService
	stats     *StatisticsService
	workouts  *WorkoutService
	auth      *AuthService
	cache     *SummaryCache
	dashboard *DashboardService
	cfg       *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	clock := newFakeClock(testNow)
	cal := NewCalendar(clock.Now, testZone)
	cfg := config.DefaultConfig()

	env := &testEnv{db: db, clock: clock, cal: cal, cfg: cfg}
	env.allocator = NewIdentifierAllocator()
	env.pricing = NewPricingService(db, cal)
	env.lifecycle = NewLifecycleService(db, cal)
	env.sweeper = NewSweepService(db, cal, nil)
	env.members = NewMemberService(db, cal, env.allocator, env.sweeper, env.lifecycle, nil, &cfg.Membership)
	env.stats = NewStatisticsService(db, cal)
	env.workouts = NewWorkoutService(db, cal, env.lifecycle)
	env.auth = NewAuthService(db, cal, env.lifecycle, &cfg.JWT)
	env.cache = NewSummaryCache(clock.Now, 10*time.Second, nil)
	env.dashboard = NewDashboardService(db, cal, env.sweeper, env.cache, nil)
	return env
}

func (e *testEnv) seedPrices(t *testing.T) {
	t.Helper()
	if err := models.SeedDefaultData(e.db, e.cal.Today().AddDate(0, -1, 0)); err != nil {
		t.Fatalf("seed prices: %v", err)
	}
}

// date returns the calendar date offset days from the test "today".
func (e *testEnv) date(offset int) time.Time {
	return e.cal.Today().AddDate(0, 0, offset)
}

// insertMember stores a member directly, bypassing registration.
func (e *testEnv) insertMember(t *testing.T, m models.Member) *models.Member {
	t.Helper()
	if m.FirstName == "" {
		m.FirstName = "Test"
	}
	if m.LastName == "" {
		m.LastName = "Member"
	}
	if m.MemberType == "" {
		m.MemberType = models.CategoryStudent
	}
	if m.GymPlan == "" {
		m.GymPlan = models.PlanMonthly
	}
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	if m.StartDate.IsZero() {
		m.StartDate = e.date(-10)
	}
	if m.EndDate.IsZero() {
		m.EndDate = m.GymPlan.EndDate(m.StartDate)
	}
	if m.DateRegistered.IsZero() {
		m.DateRegistered = e.cal.Now()
	}
	if m.UniqueCode == "" {
		var n int64
		e.db.Model(&models.Member{}).Count(&n)
		m.UniqueCode = FormatCode("TST", int(n)+1)
	}
	if m.PricePaid.IsZero() {
		m.PricePaid = decimal.Zero
	}
	if err := e.db.Create(&m).Error; err != nil {
		t.Fatalf("insert member: %v", err)
	}
	return &m
}

func (e *testEnv) countLogs(t *testing.T, memberID uint, action string) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.MembershipLog{}).
		Where("member_id = ? AND action_type = ?", memberID, action).
		Count(&n).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	return n
}

func (e *testEnv) reload(t *testing.T, id uint) *models.Member {
	t.Helper()
	var m models.Member
	if err := e.db.First(&m, id).Error; err != nil {
		t.Fatalf("reload member %d: %v", id, err)
	}
	return &m
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
