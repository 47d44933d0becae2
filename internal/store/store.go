// Package store persists translations in Postgres so repeated requests for
// the same text and target language never hit the API twice.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"paper.fit/scanlate/internal/translation"
)

// Translation is one cached translation row, keyed by the content hash of
// the original text and the target language.
type Translation struct {
	ID             uint   `gorm:"primaryKey"`
	ContentHash    []byte `gorm:"size:32;not null;uniqueIndex:idx_translations_hash_lang"`
	TargetLang     string `gorm:"size:16;not null;uniqueIndex:idx_translations_hash_lang"`
	SourceLang     string `gorm:"size:16;not null"`
	OriginalText   string `gorm:"not null"`
	TranslatedText string `gorm:"not null"`
	ProviderName   string `gorm:"size:64;not null"`
	LatencyMS      int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Store wraps the database handle. It implements translation.CacheStore.
type Store struct {
	db *gorm.DB
}

func Open(databaseURL string) (*Store, error) {
	dsn := strings.TrimSpace(databaseURL)
	if dsn == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&Translation{}); err != nil {
		return nil, fmt.Errorf("migrate translations table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap database handle: %w", err)
	}
	return sqlDB.Close()
}

// Lookup returns the cached translation for (contentHash, targetLang), or
// translation.ErrCacheMiss.
func (s *Store) Lookup(ctx context.Context, contentHash []byte, targetLang string) (*translation.CachedTranslation, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	var row Translation
	err := s.db.WithContext(ctx).
		Where("content_hash = ? AND target_lang = ?", contentHash, targetLang).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, translation.ErrCacheMiss
		}
		return nil, fmt.Errorf("query translation cache: %w", err)
	}

	return &translation.CachedTranslation{
		ContentHash:    row.ContentHash,
		SourceLang:     row.SourceLang,
		TargetLang:     row.TargetLang,
		OriginalText:   row.OriginalText,
		TranslatedText: row.TranslatedText,
		ProviderName:   row.ProviderName,
		LatencyMS:      row.LatencyMS,
	}, nil
}

// Upsert inserts or refreshes the cached translation for its hash and
// target language.
func (s *Store) Upsert(ctx context.Context, row translation.CachedTranslation) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not initialized")
	}

	record := Translation{
		ContentHash:    row.ContentHash,
		TargetLang:     row.TargetLang,
		SourceLang:     row.SourceLang,
		OriginalText:   row.OriginalText,
		TranslatedText: row.TranslatedText,
		ProviderName:   row.ProviderName,
		LatencyMS:      row.LatencyMS,
	}

	var existing Translation
	err := s.db.WithContext(ctx).
		Where("content_hash = ? AND target_lang = ?", row.ContentHash, row.TargetLang).
		First(&existing).Error
	switch {
	case err == nil:
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
			return fmt.Errorf("update translation cache: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("insert translation cache: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("query translation cache: %w", err)
	}
}
