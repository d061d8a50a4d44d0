package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nwssu/gymdesk/backend/internal/config"
	"github.com/nwssu/gymdesk/backend/internal/middleware"
	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/nwssu/gymdesk/backend/internal/services"
	"github.com/nwssu/gymdesk/backend/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testZone = time.FixedZone("PHT", 8*60*60)

// testNow is 2024-06-15 10:00 local.
var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, testZone)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")
}

type testServer struct {
	db      *gorm.DB
	cal     *services.Calendar
	auth    *services.AuthService
	members *services.MemberService
	router  *gin.Engine
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared&_foreign_keys=on", name)

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

// newTestServer wires the handlers over an in-memory database with the
// clock fixed at testNow.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := setupTestDB(t)
	cfg := config.DefaultConfig()
	cal := services.NewCalendar(func() time.Time { return testNow }, testZone)
	if err := models.SeedDefaultData(db, cal.Today().AddDate(0, -1, 0)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	lifecycle := services.NewLifecycleService(db, cal)
	sweeper := services.NewSweepService(db, cal, nil)
	members := services.NewMemberService(db, cal, services.NewIdentifierAllocator(), sweeper, lifecycle, nil, &cfg.Membership)
	workouts := services.NewWorkoutService(db, cal, lifecycle)
	stats := services.NewStatisticsService(db, cal)
	pricing := services.NewPricingService(db, cal)
	auth := services.NewAuthService(db, cal, lifecycle, &cfg.JWT)
	dashboard := services.NewDashboardService(db, cal, sweeper, services.NewSummaryCache(cal.Now, time.Minute, nil), nil)

	if err := auth.CreateAdminIfNotExists("admin", "admin123"); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	authHandler := NewAuthHandler(auth, members)
	memberHandler := NewMemberHandler(members, sweeper)
	statsHandler := NewStatisticsHandler(stats, cal)
	pricingHandler := NewPricingHandler(pricing)
	meHandler := NewMeHandler(members, workouts, cal)

	r := gin.New()
	r.GET("/health", NewHealthHandler(db).CheckHealth)

	api := r.Group("/api")
	api.POST("/auth/admin/login", authHandler.AdminLogin)
	api.POST("/auth/member/login", authHandler.MemberLogin)
	api.POST("/auth/member/register", authHandler.Register)
	api.POST("/auth/member/activate/verify", authHandler.VerifyActivation)
	api.POST("/auth/member/activate", authHandler.Activate)

	admin := api.Group("", middleware.AuthRequired(), middleware.AdminRequired())
	admin.GET("/members", memberHandler.List)
	admin.POST("/members", memberHandler.Create)
	admin.POST("/members/sweep", memberHandler.Sweep)
	admin.GET("/members/:id", memberHandler.GetByID)
	admin.PUT("/members/:id", memberHandler.Update)
	admin.DELETE("/members/:id", memberHandler.Delete)
	admin.GET("/dashboard/summary", NewDashboardHandler(dashboard).GetSummary)
	admin.GET("/statistics/revenue", statsHandler.Revenue)
	admin.GET("/statistics/logs", statsHandler.Logs)
	admin.GET("/statistics/monthly", statsHandler.Monthly)
	admin.GET("/statistics/export", statsHandler.Export)
	admin.GET("/pricing", pricingHandler.List)
	admin.PUT("/pricing", pricingHandler.SetPrice)
	admin.GET("/pricing/history", pricingHandler.History)

	me := api.Group("/me", middleware.AuthRequired(), middleware.MemberRequired())
	me.GET("/dashboard", meHandler.Dashboard)
	me.GET("/membership", meHandler.Membership)
	me.PUT("/profile", meHandler.UpdateProfile)
	me.POST("/workouts", meHandler.LogWorkout)
	me.GET("/workouts", meHandler.ListWorkouts)

	return &testServer{db: db, cal: cal, auth: auth, members: members, router: r}
}

// envelope mirrors response.Response with the payload left raw.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, env
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := utils.GenerateToken(1, "admin", utils.RoleAdmin, 1)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func memberToken(t *testing.T, id uint) string {
	t.Helper()
	token, err := utils.GenerateToken(id, "member", utils.RoleMember, 1)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}
