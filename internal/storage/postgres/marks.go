package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/google/uuid"

	"gorm.io/gorm"
)

// Таблицы оценок. Уникальный индекс на (username, ресурс) не даёт паре
// получить вторую оценку даже при гонке вставок.

type postMarkRow struct {
	UUID     string    `gorm:"column:uuid;type:uuid;primaryKey"`
	Username string    `gorm:"type:varchar(32);not null;uniqueIndex:post_marks_username_post"`
	Post     string    `gorm:"type:uuid;not null;uniqueIndex:post_marks_username_post;index"`
	Liked    bool      `gorm:"not null"`
	MarkedAt time.Time `gorm:"not null;default:now()"`
}

func (postMarkRow) TableName() string { return "post_marks" }

type commentMarkRow struct {
	UUID     string    `gorm:"column:uuid;type:uuid;primaryKey"`
	Username string    `gorm:"type:varchar(32);not null;uniqueIndex:comment_marks_username_comment"`
	Comment  string    `gorm:"type:uuid;not null;uniqueIndex:comment_marks_username_comment;index"`
	Liked    bool      `gorm:"not null"`
	MarkedAt time.Time `gorm:"not null;default:now()"`
}

func (commentMarkRow) TableName() string { return "comment_marks" }

// markRow - общая форма строки оценки любого вида.
type markRow struct {
	UUID     string
	Username string
	Liked    bool
	MarkedAt time.Time
}

// ReplaceMark выполняет в одной транзакции: проверку наличия оценки пары
// (без учёта liked), удаление прежней и вставку новой.
func (s *Store) ReplaceMark(ctx context.Context, mark *domain.Mark) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	d := mark.Target.Kind.Descriptor()
	if mark.UUID == "" {
		mark.UUID = uuid.NewString()
	}
	if mark.MarkedAt.IsZero() {
		mark.MarkedAt = time.Now().UTC()
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE username = ? AND %s = ?", d.MarkTable, d.MarkColumn)
		if err := tx.Raw(countSQL, mark.Username, mark.Target.UUID).Scan(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE username = ? AND %s = ?", d.MarkTable, d.MarkColumn)
			if err := tx.Exec(deleteSQL, mark.Username, mark.Target.UUID).Error; err != nil {
				return err
			}
		}
		insertSQL := fmt.Sprintf("INSERT INTO %s (uuid, username, %s, liked, marked_at) VALUES (?, ?, ?, ?, ?)",
			d.MarkTable, d.MarkColumn)
		return tx.Exec(insertSQL, mark.UUID, mark.Username, mark.Target.UUID, mark.Liked, mark.MarkedAt).Error
	})
	return fail("replace mark", err)
}

func (s *Store) DeleteMark(ctx context.Context, target domain.Target, username string) (bool, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	d := target.Kind.Descriptor()
	res := db.Exec(fmt.Sprintf("DELETE FROM %s WHERE username = ? AND %s = ?", d.MarkTable, d.MarkColumn),
		username, target.UUID)
	if res.Error != nil {
		return false, fail("delete mark", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetMark(ctx context.Context, target domain.Target, username string) (*domain.Mark, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	d := target.Kind.Descriptor()
	var rows []markRow
	sql := fmt.Sprintf("SELECT uuid, username, liked, marked_at FROM %s WHERE username = ? AND %s = ?",
		d.MarkTable, d.MarkColumn)
	if err := db.Raw(sql, username, target.UUID).Scan(&rows).Error; err != nil {
		return nil, fail("get mark", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	r := rows[0]
	return &domain.Mark{UUID: r.UUID, Target: target, Username: r.Username, Liked: r.Liked, MarkedAt: r.MarkedAt}, nil
}

func (s *Store) CountMarks(ctx context.Context, target domain.Target) (domain.MarkCounts, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	d := target.Kind.Descriptor()
	var counts domain.MarkCounts
	sql := fmt.Sprintf(
		"SELECT COUNT(*) FILTER (WHERE liked) AS likes, COUNT(*) FILTER (WHERE NOT liked) AS dislikes FROM %s WHERE %s = ?",
		d.MarkTable, d.MarkColumn)
	if err := db.Raw(sql, target.UUID).Scan(&counts).Error; err != nil {
		return domain.MarkCounts{}, fail("count marks", err)
	}
	return counts, nil
}
