// Package history persists transcribed sentences in SQLite.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Cyronlee/TransFlow/internal/pipeline"
)

// ErrNotFound is returned when a sentence ID is not in the store.
var ErrNotFound = errors.New("history: sentence not found")

// record is the sentences table row.
type record struct {
	ID          string    `gorm:"column:id;type:varchar(36);primaryKey"`
	SessionID   string    `gorm:"column:session_id;type:varchar(36);not null;index"`
	OffsetMS    int64     `gorm:"column:offset_ms;not null"`
	Text        string    `gorm:"column:text;type:text;not null"`
	Translation string    `gorm:"column:translation;type:text;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (record) TableName() string {
	return "sentences"
}

func (r *record) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return nil
}

func fromSentence(s *pipeline.Sentence) record {
	return record{
		ID:          s.ID,
		SessionID:   s.SessionID,
		OffsetMS:    s.Timestamp.Milliseconds(),
		Text:        s.Text,
		Translation: s.Translation,
		CreatedAt:   s.CreatedAt,
	}
}

func (r *record) sentence() pipeline.Sentence {
	return pipeline.Sentence{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Timestamp:   time.Duration(r.OffsetMS) * time.Millisecond,
		Text:        r.Text,
		Translation: r.Translation,
		CreatedAt:   r.CreatedAt,
	}
}

// Store is a sentence history backed by a SQLite file.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path and migrates the schema.
// The parent directory is created if needed.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts s. Saving an existing ID replaces the row.
func (st *Store) Save(ctx context.Context, s *pipeline.Sentence) error {
	r := fromSentence(s)
	if err := st.db.WithContext(ctx).Save(&r).Error; err != nil {
		return fmt.Errorf("history: save %s: %w", s.ID, err)
	}
	return nil
}

// Handle saves each sentence, so a Store can be used as a session sink.
func (st *Store) Handle(ctx context.Context, s *pipeline.Sentence) error {
	return st.Save(ctx, s)
}

// AttachTranslation sets the translation of a saved sentence.
func (st *Store) AttachTranslation(ctx context.Context, id, translation string) error {
	res := st.db.WithContext(ctx).Model(&record{}).Where("id = ?", id).Update("translation", translation)
	if res.Error != nil {
		return fmt.Errorf("history: attach translation to %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns one sentence by ID.
func (st *Store) Get(ctx context.Context, id string) (pipeline.Sentence, error) {
	var r record
	err := st.db.WithContext(ctx).Where("id = ?", id).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pipeline.Sentence{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return pipeline.Sentence{}, fmt.Errorf("history: get %s: %w", id, err)
	}
	return r.sentence(), nil
}

// List returns a session's sentences ordered by stream offset. An empty
// sessionID lists every session, oldest first.
func (st *Store) List(ctx context.Context, sessionID string) ([]pipeline.Sentence, error) {
	q := st.db.WithContext(ctx).Model(&record{})
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID).Order("offset_ms, created_at")
	} else {
		q = q.Order("created_at, offset_ms")
	}
	var rows []record
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	out := make([]pipeline.Sentence, len(rows))
	for i := range rows {
		out[i] = rows[i].sentence()
	}
	return out, nil
}

// Close closes the underlying database.
func (st *Store) Close() error {
	sqlDB, err := st.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
