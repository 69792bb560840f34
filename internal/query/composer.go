// Package query собирает параметризованные SQL-запросы из типизированных
// предикатов, сортировки и пагинации. Значения никогда не попадают в текст
// запроса: каждое связывается плейсхолдером "?".
package query

import (
	"math"
	"strings"
)

const (
	// DefaultPageSize - размер страницы по умолчанию.
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Fragment - кусок SQL и его аргументы в порядке плейсхолдеров.
type Fragment struct {
	SQL  string
	Args []any
}

// Predicate - условие фильтрации, которое умеет отдать свой фрагмент WHERE.
type Predicate interface {
	Fragment() Fragment
}

// Direction - направление сортировки.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) SQL() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// OrderKey - колонка, по которой можно сортировать.
type OrderKey interface {
	Column() string
}

// Ordering - ключ и направление сортировки.
type Ordering struct {
	Key       OrderKey
	Direction Direction
}

// Up сортирует по убыванию ключа: "вверх" по рейтингу значит лучшие первыми.
func Up(key OrderKey) Ordering {
	return Ordering{Key: key, Direction: Descending}
}

// Down сортирует по возрастанию ключа.
func Down(key OrderKey) Ordering {
	return Ordering{Key: key, Direction: Ascending}
}

// Limit - окно выборки.
type Limit struct {
	Count  int
	Offset int
}

// Page переводит номер страницы (с единицы) в окно выборки. Размер
// страницы не больше MaxPageSize, смещение насыщается на math.MaxInt.
func Page(n, size int) Limit {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if n < 1 {
		n = 1
	}
	if !PageFits(n, size) {
		return Limit{Count: size, Offset: math.MaxInt}
	}
	return Limit{Count: size, Offset: (n - 1) * size}
}

// PageFits сообщает, помещается ли смещение страницы n в int.
func PageFits(n, size int) bool {
	return size <= 0 || n-1 <= math.MaxInt/size
}

// Window возвращает границы окна для среза длины n.
func (l Limit) Window(n int) (start, end int) {
	start = l.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end = n
	if l.Count >= 0 && start+l.Count < n {
		end = start + l.Count
	}
	return start, end
}

// Composer накапливает части запроса. Порядок вывода фиксирован:
// base WHERE ... GROUP BY ... ORDER BY ... LIMIT ? OFFSET ?
type Composer struct {
	base    string
	where   []Fragment
	groupBy string
	order   *Ordering
	limit   *Limit
}

// Compose начинает запрос с базового SELECT и предикатов, объединённых через AND.
func Compose[P Predicate](base string, predicates ...P) *Composer {
	c := &Composer{base: base}
	for _, p := range predicates {
		c.where = append(c.where, p.Fragment())
	}
	return c
}

// Where добавляет ещё одно условие.
func (c *Composer) Where(p Predicate) *Composer {
	c.where = append(c.where, p.Fragment())
	return c
}

func (c *Composer) GroupBy(clause string) *Composer {
	c.groupBy = clause
	return c
}

func (c *Composer) OrderBy(o Ordering) *Composer {
	c.order = &o
	return c
}

func (c *Composer) Paginate(l Limit) *Composer {
	c.limit = &l
	return c
}

// Build возвращает текст запроса и аргументы.
func (c *Composer) Build() (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(c.where)+2)

	sb.WriteString(c.base)
	if len(c.where) > 0 {
		sb.WriteString(" WHERE ")
		for i, f := range c.where {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(f.SQL)
			args = append(args, f.Args...)
		}
	}
	if c.groupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(c.groupBy)
	}
	if c.order != nil && c.order.Key != nil {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(c.order.Key.Column())
		sb.WriteString(" ")
		sb.WriteString(c.order.Direction.SQL())
	}
	if c.limit != nil {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, c.limit.Count, c.limit.Offset)
	}
	return sb.String(), args
}
