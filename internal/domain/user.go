package domain

import (
	"fmt"
	"time"
)

// SpecsKind - вид роли пользователя в школе.
type SpecsKind string

const (
	SpecsTeacher       SpecsKind = "Teacher"
	SpecsStudent       SpecsKind = "Student"
	SpecsAdministrator SpecsKind = "Administrator"
	SpecsOther         SpecsKind = "Other"
)

// Subject - предмет учителя.
type Subject string

const (
	Mathematics       Subject = "Mathematics"
	Physics           Subject = "Physics"
	Chemistry         Subject = "Chemistry"
	Biology           Subject = "Biology"
	Uzbek             Subject = "Uzbek"
	Russian           Subject = "Russian"
	English           Subject = "English"
	History           Subject = "History"
	Geography         Subject = "Geography"
	Literature        Subject = "Literature"
	PhysicalEducation Subject = "PhysicalEducation"
	ComputerScience   Subject = "ComputerScience"
	Economics         Subject = "Economics"
	Law               Subject = "Law"
	Education         Subject = "Education"
)

var subjects = map[Subject]string{
	Mathematics:       "Mathematics",
	Physics:           "Physics",
	Chemistry:         "Chemistry",
	Biology:           "Biology",
	Uzbek:             "Uzbek",
	Russian:           "Russian",
	English:           "English",
	History:           "History",
	Geography:         "Geography",
	Literature:        "Literature",
	PhysicalEducation: "Physical Education",
	ComputerScience:   "Computer Science",
	Economics:         "Economics",
	Law:               "Law",
	Education:         "Education",
}

// ParseSubject разбирает предмет по его идентификатору.
func ParseSubject(s string) (Subject, error) {
	if _, ok := subjects[Subject(s)]; !ok {
		return "", fmt.Errorf("unknown subject %q", s)
	}
	return Subject(s), nil
}

// Title - человекочитаемое название предмета.
func (s Subject) Title() string {
	return subjects[s]
}

// Class - школьный класс, например 9A.
type Class struct {
	Num  int    `json:"num"`
	Char string `json:"char"`
}

func (c Class) String() string {
	return fmt.Sprintf("%d%s", c.Num, c.Char)
}

// UserSpecs - вариант роли: Teacher{Subject} | Student{Class} | Administrator{JobTitle} | Other.
// Заполнено только поле, соответствующее Kind.
type UserSpecs struct {
	Kind     SpecsKind `json:"kind"`
	Subject  Subject   `json:"subject,omitempty"`
	Class    *Class    `json:"class,omitempty"`
	JobTitle string    `json:"jobTitle,omitempty"`
}

func Teacher(subject Subject) UserSpecs {
	return UserSpecs{Kind: SpecsTeacher, Subject: subject}
}

func Student(class Class) UserSpecs {
	return UserSpecs{Kind: SpecsStudent, Class: &class}
}

func Administrator(jobTitle string) UserSpecs {
	return UserSpecs{Kind: SpecsAdministrator, JobTitle: jobTitle}
}

func Other() UserSpecs {
	return UserSpecs{Kind: SpecsOther}
}

func (s UserSpecs) IsStudent() bool       { return s.Kind == SpecsStudent }
func (s UserSpecs) IsTeacher() bool       { return s.Kind == SpecsTeacher }
func (s UserSpecs) IsAdministrator() bool { return s.Kind == SpecsAdministrator }

// IsSchoolMember - все, кроме Other.
func (s UserSpecs) IsSchoolMember() bool { return s.Kind != SpecsOther }

// User - пользователь платформы. Username - естественный ключ.
type User struct {
	UUID         string    `json:"uuid" gorm:"column:uuid;type:uuid;primaryKey"`
	Username     string    `json:"username" gorm:"type:varchar(32);not null;uniqueIndex"`
	Password     string    `json:"-" gorm:"type:varchar(72);not null"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null"`
	FirstName    string    `json:"firstName" gorm:"type:varchar(31);not null"`
	LastName     string    `json:"lastName" gorm:"type:varchar(31);not null"`
	PhoneNumber  *string   `json:"phoneNumber,omitempty" gorm:"type:varchar(12)"`
	BirthDate    time.Time `json:"birthDate" gorm:"type:date;not null"`
	About        string    `json:"about" gorm:"type:varchar(500);not null;default:''"`
	SpecsKind    SpecsKind `json:"-" gorm:"column:user_specs;type:varchar(16);not null"`
	RegisteredAt time.Time `json:"registeredAt" gorm:"not null;default:now()"`

	Specs UserSpecs `json:"specs" gorm:"-"`
}

// PublicProfile - то, что видно о пользователе без авторизации: имя и роль.
type PublicProfile struct {
	Username string    `json:"username"`
	Specs    UserSpecs `json:"specs"`
}

// Public возвращает публичную часть профиля. Для nil возвращает nil.
func (u *User) Public() *PublicProfile {
	if u == nil {
		return nil
	}
	return &PublicProfile{Username: u.Username, Specs: u.Specs}
}

// Field - изменяемое поле профиля.
type Field string

const (
	FieldPassword    Field = "password"
	FieldAbout       Field = "about"
	FieldEmail       Field = "email"
	FieldPhoneNumber Field = "phone_number"
	FieldFirstName   Field = "first_name"
	FieldLastName    Field = "last_name"
	FieldJobTitle    Field = "job_title"
	FieldClass       Field = "class"
	FieldSubject     Field = "subject"
)

// FieldChange - запрос на изменение одного поля профиля.
// Value == nil для phone_number означает удаление номера.
type FieldChange struct {
	Field Field   `json:"field"`
	Value *string `json:"value,omitempty"`
	Class *Class  `json:"class,omitempty"`
}

// StringValue возвращает значение или пустую строку.
func (c FieldChange) StringValue() string {
	if c.Value == nil {
		return ""
	}
	return *c.Value
}
