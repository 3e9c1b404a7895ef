// Package repo – processed-update bookkeeping.
//
// Telegram redelivers a webhook update until it receives a 2xx, so a slow or
// restarted handler can see the same update id more than once. MarkProcessed
// records an id and reports a replay via ErrDuplicate; rows expire after a
// TTL. An expired row never blocks a redelivery, and the table is swept of
// expired rows opportunistically as updates flow through.
package repo

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-repair-bot/internal/domain"
)

// ErrDuplicate indicates the update id was already processed.
var ErrDuplicate = errors.New("duplicate update")

// purgeEvery is the opportunistic purge cadence: one full sweep of expired
// rows per this many MarkProcessed calls.
const purgeEvery = 512

var purgeN atomic.Uint64

// MarkProcessed inserts a processed-update row for updateID. It returns
// ErrDuplicate when a non-expired row already exists, the raw DB error
// otherwise. A leftover row whose TTL elapsed is replaced, so an update id
// becomes acceptable again after expiry. Every purgeEvery-th call also runs
// PurgeExpired over the whole table.
func MarkProcessed(ctx context.Context, db *gorm.DB, updateID, chatID int64, ttl time.Duration) error {
	now := time.Now().UTC()

	if purgeN.Add(1)%purgeEvery == 0 {
		if _, err := PurgeExpired(ctx, db, now); err != nil {
			log.Warn().Err(err).Msg("processed updates: purge failed")
		}
	}

	rec := &domain.ProcessedUpdate{
		ID:        uuid.NewString(),
		UpdateID:  updateID,
		ChatID:    chatID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.WithContext(ctx).Create(rec).Error
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}

	// Either a genuine replay or a leftover row whose TTL elapsed. Deleting
	// with the expiry predicate distinguishes the two without a read.
	res := db.WithContext(ctx).
		Where("update_id = ? AND expires_at <= ?", updateID, now).
		Delete(&domain.ProcessedUpdate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the race against a concurrent redelivery.
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// glebarez/sqlite often returns plain-text errors for these.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// PurgeExpired deletes rows whose TTL elapsed before now and returns how many
// were removed.
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.ProcessedUpdate{})
	return res.RowsAffected, res.Error
}
