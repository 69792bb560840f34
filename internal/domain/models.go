package domain

import (
	"time"

	"github.com/lib/pq"
)

// EditedState хранит признак редактирования: NotEdited или Edited{EditedAt}.
type EditedState struct {
	Edited   bool       `json:"edited" gorm:"column:edited;not null;default:false"`
	EditedAt *time.Time `json:"editedAt,omitempty" gorm:"column:edited_at"`
}

// NotEdited возвращает состояние нетронутого ресурса.
func NotEdited() EditedState {
	return EditedState{}
}

// EditedAt возвращает состояние ресурса, отредактированного в момент at.
func EditedAt(at time.Time) EditedState {
	return EditedState{Edited: true, EditedAt: &at}
}

// Touch переводит состояние в Edited. Время правки никогда не уменьшается.
func (s EditedState) Touch(at time.Time) EditedState {
	if s.Edited && s.EditedAt != nil && s.EditedAt.After(at) {
		return s
	}
	return EditedAt(at)
}

// MarkCounts - агрегаты оценок ресурса. Всегда вычисляются по таблице оценок.
type MarkCounts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

// Rating считает рейтинг поста по его оценкам.
func Rating(likes, dislikes int64) float64 {
	return float64(likes) / float64(likes+dislikes+1)
}

// Post представляет пост в системе.
type Post struct {
	UUID        string         `json:"uuid" gorm:"column:uuid;type:uuid;primaryKey"`
	Title       string         `json:"title" gorm:"type:varchar(255);not null"`
	Content     string         `json:"content" gorm:"type:text;not null"`
	Author      string         `json:"author" gorm:"type:varchar(32);not null;index"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[];not null;default:'{}'"`
	PublishedAt time.Time      `json:"publishedAt" gorm:"not null;default:now()"`
	EditedState `gorm:"embedded"`

	// Вычисляемые при чтении поля.
	Likes    int64   `json:"likes" gorm:"->;-:migration"`
	Dislikes int64   `json:"dislikes" gorm:"->;-:migration"`
	Rating   float64 `json:"rating" gorm:"->;-:migration"`

	AuthorProfile *PublicProfile `json:"authorProfile,omitempty" gorm:"-"`
}

// Counts возвращает агрегаты оценок поста.
func (p *Post) Counts() MarkCounts {
	return MarkCounts{Likes: p.Likes, Dislikes: p.Dislikes}
}

// Comment представляет комментарий к посту или ответ на другой комментарий.
type Comment struct {
	UUID        string    `json:"uuid" gorm:"column:uuid;type:uuid;primaryKey"`
	UnderPost   string    `json:"underPost" gorm:"type:uuid;not null;index"`
	RepliesFor  *string   `json:"repliesFor,omitempty" gorm:"type:uuid;index"`
	Author      string    `json:"author" gorm:"type:varchar(32);not null;index"`
	Content     string    `json:"content" gorm:"type:varchar(2000);not null"`
	PublishedAt time.Time `json:"publishedAt" gorm:"not null;default:now()"`
	EditedState `gorm:"embedded"`

	Likes    int64 `json:"likes" gorm:"->;-:migration"`
	Dislikes int64 `json:"dislikes" gorm:"->;-:migration"`

	// Заполняются сборщиком дерева.
	AuthorProfile *PublicProfile `json:"authorProfile,omitempty" gorm:"-"`
	Post          *Post          `json:"-" gorm:"-"`
	Replies       []*Comment     `json:"replies,omitempty" gorm:"-"`
}

// Counts возвращает агрегаты оценок комментария.
func (c *Comment) Counts() MarkCounts {
	return MarkCounts{Likes: c.Likes, Dislikes: c.Dislikes}
}

// Mark - оценка пользователя (лайк или дизлайк) на ресурсе.
type Mark struct {
	UUID     string    `json:"uuid"`
	Target   Target    `json:"target"`
	Username string    `json:"username"`
	Liked    bool      `json:"liked"`
	MarkedAt time.Time `json:"markedAt"`
}
