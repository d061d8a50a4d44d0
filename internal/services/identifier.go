package services

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nwssu/gymdesk/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentifierAllocator issues member codes of the form PREFIX-0001.
// Numbers grow monotonically per prefix and are never reissued.
type IdentifierAllocator struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewIdentifierAllocator() *IdentifierAllocator {
	return &IdentifierAllocator{locks: make(map[string]*sync.Mutex)}
}

func (a *IdentifierAllocator) prefixLock(prefix string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[prefix]
	if !ok {
		l = &sync.Mutex{}
		a.locks[prefix] = l
	}
	return l
}

// WithPrefixLock runs fn while holding the in-process lock for the
// category's prefix. fn should contain the whole allocate-and-insert
// transaction so the lock outlives the commit.
func (a *IdentifierAllocator) WithPrefixLock(category models.Category, fn func() error) error {
	l := a.prefixLock(category.CodePrefix())
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Allocate returns the next code for category. It must run inside tx; the
// sequence row stays locked until tx ends and the unique index on
// members.unique_code rejects any duplicate that slips through.
func (a *IdentifierAllocator) Allocate(tx *gorm.DB, category models.Category) (string, error) {
	prefix := category.CodePrefix()

	seed := models.MemberCodeSequence{Prefix: prefix, UpdatedAt: time.Now().UTC()}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return "", fmt.Errorf("init code sequence %s: %w", prefix, err)
	}

	var seq models.MemberCodeSequence
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prefix = ?", prefix).
		First(&seq).Error; err != nil {
		return "", fmt.Errorf("lock code sequence %s: %w", prefix, err)
	}

	var codes []string
	if err := tx.Model(&models.Member{}).
		Where("unique_code LIKE ?", prefix+"-%").
		Pluck("unique_code", &codes).Error; err != nil {
		return "", fmt.Errorf("scan codes %s: %w", prefix, err)
	}

	next := nextCodeNumber(prefix, codes, seq.LastValue)

	if err := tx.Model(&models.MemberCodeSequence{}).
		Where("prefix = ?", prefix).
		Updates(map[string]interface{}{"last_value": next, "updated_at": time.Now().UTC()}).Error; err != nil {
		return "", fmt.Errorf("advance code sequence %s: %w", prefix, err)
	}

	return FormatCode(prefix, next), nil
}

// nextCodeNumber is one past the larger of the highest parsable existing
// code and the persisted high-water mark.
func nextCodeNumber(prefix string, codes []string, highWater int) int {
	max := highWater
	for _, code := range codes {
		if n, ok := ParseCodeNumber(prefix, code); ok && n > max {
			max = n
		}
	}
	return max + 1
}

// ParseCodeNumber extracts the numeric suffix of code; ok is false for
// codes with another prefix or a malformed suffix.
func ParseCodeNumber(prefix, code string) (int, bool) {
	rest, found := strings.CutPrefix(code, prefix+"-")
	if !found || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func FormatCode(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}
