// Command backfill_code_sequences raises each member code sequence to the
// highest code already stored, for databases imported from before the
// sequence table existed. Sequences are never lowered.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nwssu/gymdesk/backend/internal/config"
	"github.com/nwssu/gymdesk/backend/internal/models"
	"github.com/nwssu/gymdesk/backend/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type sequenceChange struct {
	Prefix  string
	Before  int
	Highest int
	After   int
}

func main() {
	dryRun := flag.Bool("dry-run", false, "report changes without writing them")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := models.Open(&cfg.Database, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.MemberCodeSequence{}); err != nil {
		log.Fatalf("Failed to migrate code sequences: %v", err)
	}

	fmt.Println("Connected to database successfully!")
	fmt.Println("")

	changes, err := backfill(db, *dryRun)
	if err != nil {
		log.Fatalf("Failed to backfill code sequences: %v", err)
	}

	fmt.Printf("%-8s %-10s %-10s %-10s\n", "Prefix", "Before", "Highest", "After")
	fmt.Println("------------------------------------------")
	for _, c := range changes {
		fmt.Printf("%-8s %-10d %-10d %-10d\n", c.Prefix, c.Before, c.Highest, c.After)
	}
	fmt.Println("")
	if *dryRun {
		fmt.Println("Dry run, nothing was written.")
	}
}

// backfill computes, and unless dryRun stores, the sequence value for every prefix.
func backfill(db *gorm.DB, dryRun bool) ([]sequenceChange, error) {
	var changes []sequenceChange
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, category := range models.Categories {
			prefix := category.CodePrefix()

			var codes []string
			if err := tx.Model(&models.Member{}).
				Where("unique_code LIKE ?", prefix+"-%").
				Pluck("unique_code", &codes).Error; err != nil {
				return fmt.Errorf("scan codes %s: %w", prefix, err)
			}
			highest := 0
			for _, code := range codes {
				if n, ok := services.ParseCodeNumber(prefix, code); ok && n > highest {
					highest = n
				}
			}

			var seq models.MemberCodeSequence
			err := tx.Where("prefix = ?", prefix).Limit(1).Find(&seq).Error
			if err != nil {
				return fmt.Errorf("read sequence %s: %w", prefix, err)
			}

			change := sequenceChange{Prefix: prefix, Before: seq.LastValue, Highest: highest, After: seq.LastValue}
			if highest > seq.LastValue {
				change.After = highest
			}
			changes = append(changes, change)

			if dryRun || change.After == change.Before {
				continue
			}
			row := models.MemberCodeSequence{Prefix: prefix, LastValue: change.After, UpdatedAt: time.Now().UTC()}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "prefix"}},
				DoUpdates: clause.AssignmentColumns([]string{"last_value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("store sequence %s: %w", prefix, err)
			}
		}
		return nil
	})
	return changes, err
}
