package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Code prefixes per entity type.
const (
	CategoryCodePrefix = "CAT"
	ProductCodePrefix  = "PROD"
	OrderCodePrefix    = "ORD"
)

// codeTables maps a prefix to the table holding codes with that prefix,
// used to seed a day's counter from rows that predate the counter table.
var codeTables = map[string]string{
	CategoryCodePrefix: "categories",
	ProductCodePrefix:  "products",
	OrderCodePrefix:    "orders",
}

// NextCode hands out the next `<PREFIX>-<YYYYMMDD>-<NNNN>` code for the
// given prefix. It must be called inside the same transaction that
// inserts the entity: the counter row update and the insert then commit
// or roll back together, so concurrent placements on the same day cannot
// both observe the same sequence value. The suffix is zero-padded to
// four digits and widens past 9999.
func NextCode(tx *gorm.DB, prefix string, now time.Time) (string, error) {
	day := now.Format("20060102")

	var seq CodeSequence
	err := tx.Where("prefix = ? AND day = ?", prefix, day).First(&seq).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seq = CodeSequence{Prefix: prefix, Day: day}
	case err != nil:
		return "", err
	}

	// reconcile with the greatest committed code so the counter can
	// never hand out a value already taken: covers rows that predate
	// the counter table and the retry after a same-day collision
	last, err := lastAssignedSeq(tx, prefix, day)
	if err != nil {
		return "", err
	}
	if last > seq.LastSeq {
		seq.LastSeq = last
	}

	seq.LastSeq++
	if err := tx.Save(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day, seq.LastSeq), nil
}

// lastAssignedSeq recovers the greatest suffix already committed for
// (prefix, day) from the entity table itself.
func lastAssignedSeq(tx *gorm.DB, prefix, day string) (int, error) {
	table, ok := codeTables[prefix]
	if !ok {
		return 0, fmt.Errorf("unknown code prefix %q", prefix)
	}

	var codes []string
	err := tx.Table(table).
		Where("code LIKE ?", prefix+"-"+day+"-%").
		Order("code DESC").
		Limit(1).
		Pluck("code", &codes).Error
	if err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, nil
	}

	code := codes[0]
	suffix := code[strings.LastIndex(code, "-")+1:]
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, fmt.Errorf("malformed code %q in %s: %w", code, table, err)
	}
	return n, nil
}
