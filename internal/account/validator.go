package account

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
	// Узбекский номер: 998 и ещё девять цифр.
	phonePattern = regexp.MustCompile(`^998[0-9]{9}$`)
)

// Правила полей профиля.
const (
	rulePassword  = "required,min=8,max=24"
	ruleEmail     = "required,email,max=255"
	ruleName      = "required,max=31"
	ruleAbout     = "max=500"
	rulePhone     = "uzphone"
	ruleJobTitle  = "required,max=31"
	ruleClassNum  = "min=1,max=11"
	ruleClassChar = "len=1,alpha,uppercase"
)

// Validator проверяет поля профиля и собирает все нарушения разом.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	// Имена полей в ошибках берутся из json-тегов.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("uzphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// ruleOf переводит тег validator в правило домена.
func ruleOf(tag string) string {
	switch tag {
	case "required":
		return domain.RuleRequired
	case "min":
		return domain.RuleTooShort
	case "max":
		return domain.RuleTooLong
	}
	return domain.RuleInvalid
}

func collect(out *domain.ValidationErrors, field string, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		*out = append(*out, domain.ValidationError{Field: field, Rule: domain.RuleInvalid})
		return
	}
	for _, fe := range verrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		*out = append(*out, domain.ValidationError{Field: name, Rule: ruleOf(fe.Tag())})
	}
}

// Struct проверяет структуру по тегам validate.
func (v *Validator) Struct(s any) domain.ValidationErrors {
	var out domain.ValidationErrors
	collect(&out, "", v.validate.Struct(s))
	return out
}

// Var проверяет одно значение и приписывает нарушения полю field.
func (v *Validator) Var(field string, value any, rules string) domain.ValidationErrors {
	var out domain.ValidationErrors
	collect(&out, field, v.validate.Var(value, rules))
	return out
}

// Class проверяет класс ученика.
func (v *Validator) Class(class *domain.Class) domain.ValidationErrors {
	field := string(domain.FieldClass)
	if class == nil {
		return domain.ValidationErrors{{Field: field, Rule: domain.RuleRequired}}
	}
	out := v.Var(field, class.Num, ruleClassNum)
	// Для класса важен только факт нарушения формата буквы.
	if errs := v.Var(field, class.Char, ruleClassChar); len(errs) > 0 {
		out = append(out, domain.ValidationError{Field: field, Rule: domain.RuleInvalid})
	}
	return out
}

// Subject проверяет предмет учителя.
func (v *Validator) Subject(subject string) domain.ValidationErrors {
	if _, err := domain.ParseSubject(subject); err != nil {
		return domain.ValidationErrors{{Field: string(domain.FieldSubject), Rule: domain.RuleInvalid}}
	}
	return nil
}
