package models

import (
	"fmt"
	"time"

	"github.com/nwssu/gymdesk/backend/internal/config"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open builds a *gorm.DB for the configured driver without touching the global.
func Open(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// Duplicate keys surface as gorm.ErrDuplicatedKey so code allocation can retry.
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

func InitDB(cfg *config.DatabaseConfig, mode string) error {
	level := logger.Warn
	if mode == "debug" {
		level = logger.Info
	}

	db, err := Open(cfg, level)
	if err != nil {
		return err
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Admin{},
		&Member{},
		&MembershipLog{},
		&GymPricing{},
		&PriceHistory{},
		&Workout{},
		&MemberCodeSequence{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// DefaultPrices is the price list installed on an empty database.
// There are no Annual rows; annual registrations resolve to a zero price.
func DefaultPrices() []GymPricing {
	return []GymPricing{
		{MemberType: CategoryStudent, PlanType: PlanDaily, Price: decimal.NewFromInt(40)},
		{MemberType: CategoryFaculty, PlanType: PlanDaily, Price: decimal.NewFromInt(40)},
		{MemberType: CategoryOutsider, PlanType: PlanDaily, Price: decimal.NewFromInt(60)},
		{MemberType: CategoryStudent, PlanType: PlanMonthly, Price: decimal.NewFromInt(500)},
		{MemberType: CategoryFaculty, PlanType: PlanMonthly, Price: decimal.NewFromInt(500)},
		{MemberType: CategoryOutsider, PlanType: PlanMonthly, Price: decimal.NewFromInt(800)},
	}
}

// SeedDefaultData installs the default price list if the table is empty.
// effective is the calendar date the seeded prices take effect.
func SeedDefaultData(db *gorm.DB, effective time.Time) error {
	var count int64
	if err := db.Model(&GymPricing{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	prices := DefaultPrices()
	for i := range prices {
		prices[i].EffectiveDate = effective
	}
	return db.Create(&prices).Error
}
