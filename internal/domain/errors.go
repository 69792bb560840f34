package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound - сущность с данным ключом отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrStoreFailure - сбой хранилища (I/O, транзакция, таймаут).
	ErrStoreFailure = errors.New("store failure")
	// ErrMarkConflict - параллельная вставка оценки нарушила уникальность (user, resource).
	ErrMarkConflict = errors.New("mark conflict")

	ErrAuthorNotFound        = errors.New("publish: author not found")
	ErrTargetPostNotFound    = errors.New("publish: target post not found")
	ErrParentCommentNotFound = errors.New("publish: parent comment not found under the post")
	ErrInvalidContent        = errors.New("publish: invalid content")

	ErrNotAuthor = errors.New("edit: requester is not the author")

	ErrUsernameTaken = errors.New("registration: username already exists")
	ErrWrongUsername = errors.New("sign in: wrong username")
	ErrWrongPassword = errors.New("sign in: wrong password")
)

// StoreError оборачивает ошибку хранилища. errors.Is(err, ErrStoreFailure) == true.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store failure: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

// ValidationError - одно нарушение правила для поля.
type ValidationError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Rule
}

// Правила валидации.
const (
	RuleRequired         = "required"
	RuleTooShort         = "too_short"
	RuleTooLong          = "too_long"
	RuleInvalid          = "invalid_format"
	RuleNotStudent       = "not_student"
	RuleNotTeacher       = "not_teacher"
	RuleNotAdministrator = "not_administrator"
	RuleUnknownField     = "unknown_field"
)

// ValidationErrors собирает все нарушения одного запроса.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
