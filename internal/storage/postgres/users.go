package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/query"
	"github.com/google/uuid"

	"gorm.io/gorm"
)

// Данные ролей живут в отдельных таблицах, ключ - username.

type studentRow struct {
	Username  string `gorm:"type:varchar(32);primaryKey"`
	ClassNum  int    `gorm:"not null"`
	ClassChar string `gorm:"type:char(1);not null"`
}

func (studentRow) TableName() string { return "students" }

type teacherRow struct {
	Username string `gorm:"type:varchar(32);primaryKey"`
	Subject  string `gorm:"type:varchar(32);not null"`
}

func (teacherRow) TableName() string { return "teachers" }

type administratorRow struct {
	Username string `gorm:"type:varchar(32);primaryKey"`
	JobTitle string `gorm:"type:varchar(31);not null"`
}

func (administratorRow) TableName() string { return "administrators" }

// userRow - строка выборки пользователя вместе с колонками всех ролей.
type userRow struct {
	domain.User
	ClassNum  *int
	ClassChar *string
	Subject   *string
	JobTitle  *string
}

func (r *userRow) toDomain() *domain.User {
	u := r.User
	switch u.SpecsKind {
	case domain.SpecsStudent:
		var class domain.Class
		if r.ClassNum != nil {
			class.Num = *r.ClassNum
		}
		if r.ClassChar != nil {
			class.Char = *r.ClassChar
		}
		u.Specs = domain.Student(class)
	case domain.SpecsTeacher:
		var subject domain.Subject
		if r.Subject != nil {
			subject = domain.Subject(*r.Subject)
		}
		u.Specs = domain.Teacher(subject)
	case domain.SpecsAdministrator:
		var title string
		if r.JobTitle != nil {
			title = *r.JobTitle
		}
		u.Specs = domain.Administrator(title)
	default:
		u.Specs = domain.Other()
	}
	return &u
}

const usersSelect = "SELECT users.*, " +
	"students.class_num, students.class_char, teachers.subject, administrators.job_title " +
	"FROM users " +
	"LEFT OUTER JOIN students ON users.username = students.username " +
	"LEFT OUTER JOIN teachers ON users.username = teachers.username " +
	"LEFT OUTER JOIN administrators ON users.username = administrators.username"

// Колонки таблицы users для изменяемых полей профиля.
var userColumns = map[domain.Field]string{
	domain.FieldPassword:    "password",
	domain.FieldAbout:       "about",
	domain.FieldEmail:       "email",
	domain.FieldPhoneNumber: "phone_number",
	domain.FieldFirstName:   "first_name",
	domain.FieldLastName:    "last_name",
}

// requireUser проверяет существование автора внутри транзакции.
func requireUser(tx *gorm.DB, username string) error {
	var n int64
	if err := tx.Model(&domain.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAuthorNotFound
	}
	return nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	stored := *user
	if stored.UUID == "" {
		stored.UUID = uuid.NewString()
	}
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = time.Now().UTC()
	}
	if stored.Specs.Kind == "" {
		stored.Specs = domain.Other()
	}
	stored.SpecsKind = stored.Specs.Kind

	err := db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).Where("username = ?", stored.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrUsernameTaken
		}
		if err := tx.Create(&stored).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrUsernameTaken
			}
			return err
		}

		specs := stored.Specs
		switch specs.Kind {
		case domain.SpecsStudent:
			var class domain.Class
			if specs.Class != nil {
				class = *specs.Class
			}
			return tx.Create(&studentRow{Username: stored.Username, ClassNum: class.Num, ClassChar: class.Char}).Error
		case domain.SpecsTeacher:
			return tx.Create(&teacherRow{Username: stored.Username, Subject: string(specs.Subject)}).Error
		case domain.SpecsAdministrator:
			return tx.Create(&administratorRow{Username: stored.Username, JobTitle: specs.JobTitle}).Error
		}
		return nil
	})
	if err != nil {
		return nil, fail("create user", err)
	}
	return &stored, nil
}

func (s *Store) selectUsers(ctx context.Context, op string, preds []query.UserPredicate, limit *query.Limit) ([]*domain.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	c := query.Compose(usersSelect, preds...)
	if limit != nil {
		c.Paginate(*limit)
	}
	sql, args := c.Build()

	var rows []userRow
	if err := db.Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fail(op, err)
	}
	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toDomain())
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, preds ...query.UserPredicate) (*domain.User, error) {
	users, err := s.selectUsers(ctx, "get user", preds, &query.Limit{Count: 1})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.ErrNotFound
	}
	return users[0], nil
}

func (s *Store) GetUsers(ctx context.Context, preds ...query.UserPredicate) ([]*domain.User, error) {
	return s.selectUsers(ctx, "get users", preds, nil)
}

func (s *Store) UpdateUser(ctx context.Context, username string, changes []domain.FieldChange) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, username); err != nil {
			if errors.Is(err, domain.ErrAuthorNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		for _, ch := range changes {
			if err := applyChange(tx, username, ch); err != nil {
				return err
			}
		}
		return nil
	})
	return fail("update user", err)
}

func applyChange(tx *gorm.DB, username string, ch domain.FieldChange) error {
	if column, ok := userColumns[ch.Field]; ok {
		var value any
		if ch.Value != nil {
			value = *ch.Value
		}
		return tx.Model(&domain.User{}).Where("username = ?", username).Update(column, value).Error
	}

	switch ch.Field {
	case domain.FieldJobTitle:
		return tx.Model(&administratorRow{}).Where("username = ?", username).
			Update("job_title", ch.StringValue()).Error
	case domain.FieldSubject:
		return tx.Model(&teacherRow{}).Where("username = ?", username).
			Update("subject", ch.StringValue()).Error
	case domain.FieldClass:
		if ch.Class == nil {
			return nil
		}
		return tx.Model(&studentRow{}).Where("username = ?", username).
			Updates(map[string]any{"class_num": ch.Class.Num, "class_char": ch.Class.Char}).Error
	}
	return nil
}
