package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// NextNumber computes the next document number for a family, formatted as
// PREFIX-YYYY-NNN with NNN zero-padded to 3 digits. The counter restarts each
// year and widens past 999 instead of wrapping.
//
// It scans for the greatest existing number of the family, ordering by
// length before value so a widened counter (1000 after 999) still sorts
// last. It must run inside the same transaction that inserts the new row,
// and the number column carries a unique index: a concurrent allocation
// loses the race at insert time (gorm.ErrDuplicatedKey) and the caller
// retries once with a fresh number before surfacing ErrConflict.
func NextNumber(tx *gorm.DB, model any, prefix string, now time.Time) (string, error) {
	family := fmt.Sprintf("%s-%d-", prefix, now.Year())
	var row struct{ Number string }
	err := tx.Model(model).
		Select("number").
		Where("number LIKE ?", family+"%").
		Order("LENGTH(number) DESC, number DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return "", fmt.Errorf("scan last number: %w", err)
	}
	next := 1
	if row.Number != "" {
		tail := strings.TrimPrefix(row.Number, family)
		n, perr := strconv.Atoi(tail)
		if perr != nil {
			return "", fmt.Errorf("malformed number %q: %w", row.Number, perr)
		}
		next = n + 1
	}
	return fmt.Sprintf("%s%03d", family, next), nil
}
