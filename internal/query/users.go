package query

import (
	"slices"

	"github.com/UkralStul/school-board/internal/domain"
)

// UserPredicate - условие на пользователей. Позволяет искать по любому полю профиля.
type UserPredicate interface {
	Predicate
	MatchUser(u *domain.User) bool
}

type UserUUID string

func (v UserUUID) Fragment() Fragment {
	return Fragment{SQL: "users.uuid = ?", Args: []any{string(v)}}
}

func (v UserUUID) MatchUser(u *domain.User) bool { return u.UUID == string(v) }

type Username string

func (v Username) Fragment() Fragment {
	return Fragment{SQL: "users.username = ?", Args: []any{string(v)}}
}

func (v Username) MatchUser(u *domain.User) bool { return u.Username == string(v) }

// UsernameIn - пакетный поиск по логинам.
type UsernameIn []string

func (v UsernameIn) Fragment() Fragment {
	return Fragment{SQL: "users.username IN ?", Args: []any{[]string(v)}}
}

func (v UsernameIn) MatchUser(u *domain.User) bool { return slices.Contains(v, u.Username) }

type FirstName string

func (v FirstName) Fragment() Fragment {
	return Fragment{SQL: "users.first_name = ?", Args: []any{string(v)}}
}

func (v FirstName) MatchUser(u *domain.User) bool { return u.FirstName == string(v) }

type LastName string

func (v LastName) Fragment() Fragment {
	return Fragment{SQL: "users.last_name = ?", Args: []any{string(v)}}
}

func (v LastName) MatchUser(u *domain.User) bool { return u.LastName == string(v) }

type Email string

func (v Email) Fragment() Fragment {
	return Fragment{SQL: "users.email = ?", Args: []any{string(v)}}
}

func (v Email) MatchUser(u *domain.User) bool { return u.Email == string(v) }

type PhoneNumber string

func (v PhoneNumber) Fragment() Fragment {
	return Fragment{SQL: "users.phone_number = ?", Args: []any{string(v)}}
}

func (v PhoneNumber) MatchUser(u *domain.User) bool {
	return u.PhoneNumber != nil && *u.PhoneNumber == string(v)
}

type SpecsKind domain.SpecsKind

func (v SpecsKind) Fragment() Fragment {
	return Fragment{SQL: "users.user_specs = ?", Args: []any{string(v)}}
}

func (v SpecsKind) MatchUser(u *domain.User) bool { return u.Specs.Kind == domain.SpecsKind(v) }

// MatchUser проверяет все предикаты.
func MatchUser(u *domain.User, preds []UserPredicate) bool {
	for _, pred := range preds {
		if !pred.MatchUser(u) {
			return false
		}
	}
	return true
}
