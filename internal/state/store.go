// Package state persists the terminal's client-side keys in a local sqlite
// file: the credential pair, the cash-session flag, and the cart snapshot.
// Each key is independently clearable.
package state

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/picosretail/pos-terminal/pkg/config"
)

const (
	// KeyAuth stores the credential pair plus username.
	KeyAuth = "auth-storage"
	// KeySession stores the cash-drawer session-open flag.
	KeySession = "session-storage"
	// KeyCart stores the serialized cart snapshot.
	KeyCart = "cart-storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

type clientState struct {
	Key       string `gorm:"column:key;primaryKey"`
	Value     string `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

func (clientState) TableName() string { return "client_state" }

// Store wraps the local sqlite handle.
type Store struct {
	conn *gorm.DB
}

// Open boots the sqlite-backed store and applies pending migrations.
func Open(ctx context.Context, cfg config.StateConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("state path is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	// Single terminal process owns the file.
	sqlDB.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return nil, fmt.Errorf("migrating state db: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Get returns the stored value for key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var row clientState
	err := s.conn.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading state key %q: %w", key, err)
	}
	return row.Value, true, nil
}

// Put upserts the value under key.
func (s *Store) Put(ctx context.Context, key, value string) error {
	row := clientState{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.conn.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("writing state key %q: %w", key, err)
	}
	return nil
}

// Delete removes a single key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.conn.WithContext(ctx).Delete(&clientState{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("deleting state key %q: %w", key, err)
	}
	return nil
}

// ClearSessionScoped wipes every key tied to an authenticated session. Used
// on logout and on irrecoverable refresh failure.
func (s *Store) ClearSessionScoped(ctx context.Context) error {
	err := s.conn.WithContext(ctx).
		Delete(&clientState{}, "key IN ?", []string{KeyAuth, KeySession, KeyCart}).Error
	if err != nil {
		return fmt.Errorf("clearing session state: %w", err)
	}
	return nil
}

// Close shuts down the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
