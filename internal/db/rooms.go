package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/donok1/wedding-quiz/internal/room"
	"github.com/donok1/wedding-quiz/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomStore keeps room documents in the rooms table. Patches are applied
// inside Postgres with nested jsonb_set calls, so concurrent writers of
// different leaves never overwrite each other.
type RoomStore struct {
	db *gorm.DB
}

func NewRoomStore(conn *gorm.DB) *RoomStore {
	return &RoomStore{db: conn}
}

func (s *RoomStore) Read(ctx context.Context, code string) (room.Document, error) {
	var record Room
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return room.Document{}, store.ErrNotFound
	}
	if err != nil {
		return room.Document{}, store.Unavailable("read", err)
	}
	doc, err := room.Decode(record.Document)
	if err != nil {
		return room.Document{}, store.Malformed(code, err)
	}
	return doc, nil
}

func (s *RoomStore) Create(ctx context.Context, code string, doc room.Document) (room.Document, error) {
	data, err := room.Encode(doc)
	if err != nil {
		return room.Document{}, err
	}
	record := Room{Code: code, Document: datatypes.JSON(data)}
	err = s.db.WithContext(ctx).Create(&record).Error
	if err == nil {
		return room.Normalize(doc), nil
	}
	if !isUniqueViolation(err) {
		return room.Document{}, store.Unavailable("create", err)
	}
	existing, err := s.Read(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrMalformed) {
		return room.Document{}, err
	}
	if err := s.Write(ctx, code, doc); err != nil {
		return room.Document{}, err
	}
	return room.Normalize(doc), nil
}

func (s *RoomStore) Write(ctx context.Context, code string, doc room.Document) error {
	data, err := room.Encode(doc)
	if err != nil {
		return err
	}
	record := Room{Code: code, Document: datatypes.JSON(data)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
	}).Create(&record).Error
	return store.Unavailable("write", err)
}

func (s *RoomStore) Patch(ctx context.Context, code string, fields ...room.Field) error {
	for _, f := range fields {
		if err := room.ValidateField(f); err != nil {
			return err
		}
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.ensure(s.db.WithContext(ctx), code).Error; err != nil {
		return store.Unavailable("patch", err)
	}
	err := s.db.WithContext(ctx).Model(&Room{}).
		Where("code = ?", code).
		Updates(map[string]any{
			"document":   patchExpr(fields),
			"updated_at": time.Now().UTC(),
		}).Error
	return store.Unavailable("patch", err)
}

// ensure inserts a default room for code unless one is already stored.
func (s *RoomStore) ensure(tx *gorm.DB, code string) *gorm.DB {
	data, err := room.Encode(room.New())
	if err != nil {
		tx.AddError(err)
		return tx
	}
	record := Room{Code: code, Document: datatypes.JSON(data)}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&record)
}

// patchExpr nests one jsonb_set per field around the current document.
// Later fields win over earlier ones on the same leaf.
func patchExpr(fields []room.Field) clause.Expr {
	expr := gorm.Expr("document")
	for _, f := range fields {
		expr = gorm.Expr("jsonb_set(?, ?::text[], ?::jsonb, true)", expr, textArray(f.Segments()), string(f.Value))
	}
	return expr
}

// textArray renders parts as a Postgres text array literal.
func textArray(parts []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, part := range parts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		for _, r := range part {
			if r == '"' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
