// Package account отвечает за регистрацию, вход и изменение профиля.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/logger"
	"github.com/UkralStul/school-board/internal/query"
	"github.com/UkralStul/school-board/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest - данные для регистрации. Specs проверяется отдельно,
// потому что набор правил зависит от роли.
type RegisterRequest struct {
	Username    string           `json:"username" validate:"required,username"`
	Password    string           `json:"password" validate:"required,min=8,max=24"`
	Email       string           `json:"email" validate:"required,email,max=255"`
	FirstName   string           `json:"first_name" validate:"required,max=31"`
	LastName    string           `json:"last_name" validate:"required,max=31"`
	PhoneNumber *string          `json:"phone_number,omitempty" validate:"omitempty,uzphone"`
	BirthDate   time.Time        `json:"birth_date"`
	About       string           `json:"about" validate:"max=500"`
	Specs       domain.UserSpecs `json:"specs" validate:"-"`
}

type Service struct {
	users     storage.UserStore
	validator *Validator
	hasher    *Hasher
	log       logger.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithHashCost задает стоимость bcrypt. В тестах удобно bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hasher = NewHasher(cost) }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(users storage.UserStore, opts ...Option) *Service {
	s := &Service{
		users:     users,
		validator: NewValidator(),
		hasher:    NewHasher(bcrypt.DefaultCost),
		log:       logger.Nop{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register проверяет все поля разом и создает пользователя.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	errs := s.validator.Struct(req)
	if req.BirthDate.IsZero() {
		errs = append(errs, domain.ValidationError{Field: "birth_date", Rule: domain.RuleRequired})
	}
	errs = append(errs, s.validateSpecs(req.Specs)...)
	if len(errs) > 0 {
		return nil, errs
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, &domain.User{
		Username:     req.Username,
		Password:     hashed,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		BirthDate:    req.BirthDate,
		About:        req.About,
		Specs:        req.Specs,
		RegisteredAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("user %s registered as %s", user.Username, user.Specs.Kind)
	return user, nil
}

func (s *Service) validateSpecs(specs domain.UserSpecs) domain.ValidationErrors {
	switch specs.Kind {
	case domain.SpecsStudent:
		return s.validator.Class(specs.Class)
	case domain.SpecsTeacher:
		return s.validator.Subject(string(specs.Subject))
	case domain.SpecsAdministrator:
		return s.validator.Var(string(domain.FieldJobTitle), specs.JobTitle, ruleJobTitle)
	case domain.SpecsOther:
		return nil
	}
	return domain.ValidationErrors{{Field: "specs", Rule: domain.RuleInvalid}}
}

// SignIn находит пользователя по имени и сверяет пароль.
func (s *Service) SignIn(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, query.Username(username))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrWrongUsername
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(password, user.Password); err != nil {
		if errors.Is(err, errMismatch) {
			return nil, domain.ErrWrongPassword
		}
		return nil, err
	}
	return user, nil
}

// ChangeFields проверяет все изменения, включая допустимость поля для роли
// пользователя, и только затем пишет их в хранилище.
func (s *Service) ChangeFields(ctx context.Context, user *domain.User, changes []domain.FieldChange) error {
	var errs domain.ValidationErrors
	prepared := make([]domain.FieldChange, 0, len(changes))
	for _, ch := range changes {
		if verrs := s.validateChange(user.Specs, ch); len(verrs) > 0 {
			errs = append(errs, verrs...)
			continue
		}
		prepared = append(prepared, ch)
	}
	if len(errs) > 0 {
		return errs
	}

	for i, ch := range prepared {
		if ch.Field != domain.FieldPassword {
			continue
		}
		hashed, err := s.hasher.Hash(ch.StringValue())
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		prepared[i].Value = &hashed
	}
	if err := s.users.UpdateUser(ctx, user.Username, prepared); err != nil {
		return err
	}
	s.log.Infof("user %s changed %d field(s)", user.Username, len(prepared))
	return nil
}

func (s *Service) validateChange(specs domain.UserSpecs, ch domain.FieldChange) domain.ValidationErrors {
	field := string(ch.Field)
	switch ch.Field {
	case domain.FieldPassword:
		return s.validator.Var(field, ch.StringValue(), rulePassword)
	case domain.FieldAbout:
		return s.validator.Var(field, ch.StringValue(), ruleAbout)
	case domain.FieldEmail:
		return s.validator.Var(field, ch.StringValue(), ruleEmail)
	case domain.FieldPhoneNumber:
		// nil удаляет номер.
		if ch.Value == nil {
			return nil
		}
		return s.validator.Var(field, *ch.Value, rulePhone)
	case domain.FieldFirstName, domain.FieldLastName:
		return s.validator.Var(field, ch.StringValue(), ruleName)
	case domain.FieldJobTitle:
		if !specs.IsAdministrator() {
			return domain.ValidationErrors{{Field: field, Rule: domain.RuleNotAdministrator}}
		}
		return s.validator.Var(field, ch.StringValue(), ruleJobTitle)
	case domain.FieldClass:
		if !specs.IsStudent() {
			return domain.ValidationErrors{{Field: field, Rule: domain.RuleNotStudent}}
		}
		return s.validator.Class(ch.Class)
	case domain.FieldSubject:
		if !specs.IsTeacher() {
			return domain.ValidationErrors{{Field: field, Rule: domain.RuleNotTeacher}}
		}
		return s.validator.Subject(ch.StringValue())
	}
	return domain.ValidationErrors{{Field: field, Rule: domain.RuleUnknownField}}
}

// Profile перечитывает пользователя по имени.
func (s *Service) Profile(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetUser(ctx, query.Username(username))
}
