package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ storage.Storage = (*Store)(nil)

// uniqueViolation - SQLSTATE нарушения уникального индекса.
const uniqueViolation = "23505"

// Options - параметры подключения.
type Options struct {
	// Timeout ограничивает каждый вызов хранилища. Ноль - без ограничения.
	Timeout time.Duration
	// LogSQL включает логирование всех запросов.
	LogSQL bool
}

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, opts Options) (*Store, error) {
	level := logger.Warn
	if opts.LogSQL {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(
		&domain.User{}, &studentRow{}, &teacherRow{}, &administratorRow{},
		&domain.Post{}, &domain.Comment{},
		&postMarkRow{}, &commentMarkRow{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewWithDB(db, opts.Timeout), nil
}

// NewWithDB оборачивает уже открытое соединение. Миграция не выполняется.
func NewWithDB(db *gorm.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// conn возвращает сессию, ограниченную таймаутом хранилища.
func (s *Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if s.timeout <= 0 {
		return s.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

// Ошибки, которые хранилище отдаёт как есть.
var domainErrors = []error{
	domain.ErrNotFound,
	domain.ErrAuthorNotFound,
	domain.ErrTargetPostNotFound,
	domain.ErrParentCommentNotFound,
	domain.ErrUsernameTaken,
}

// fail приводит ошибку gorm к таксономии хранилища.
func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if isUniqueViolation(err) {
		err = fmt.Errorf("%w: %w", domain.ErrMarkConflict, err)
	}
	return &domain.StoreError{Op: op, Err: err}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
