package domain

import "fmt"

// Kind - вид ресурса. Набор видов закрыт.
type Kind int

const (
	PostKind Kind = iota + 1
	CommentKind
)

func (k Kind) String() string {
	switch k {
	case PostKind:
		return "post"
	case CommentKind:
		return "comment"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Descriptor описывает, где живёт ресурс данного вида.
// Общая логика (оценки, дерево комментариев) работает только через него.
type Descriptor struct {
	Kind         Kind
	Table        string
	ContentTable string
	MarkTable    string
	MarkColumn   string
}

var descriptors = map[Kind]Descriptor{
	PostKind: {
		Kind:         PostKind,
		Table:        "posts",
		ContentTable: "posts",
		MarkTable:    "post_marks",
		MarkColumn:   "post",
	},
	CommentKind: {
		Kind:         CommentKind,
		Table:        "comments",
		ContentTable: "comments",
		MarkTable:    "comment_marks",
		MarkColumn:   "comment",
	},
}

// Descriptor возвращает дескриптор вида. Паникует на неизвестном виде:
// значения Kind создаются только константами пакета.
func (k Kind) Descriptor() Descriptor {
	d, ok := descriptors[k]
	if !ok {
		panic(fmt.Sprintf("domain: unknown resource kind %d", int(k)))
	}
	return d
}

// Target адресует конкретный ресурс.
type Target struct {
	Kind Kind   `json:"kind"`
	UUID string `json:"uuid"`
}

func (t Target) String() string {
	return t.Kind.String() + ":" + t.UUID
}
