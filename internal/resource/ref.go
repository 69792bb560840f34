package resource

import "github.com/UkralStul/school-board/internal/domain"

// Ref - найденный ресурс: PostRef или CommentRef. Других вариантов нет.
type Ref interface {
	Target() domain.Target
	Author() string
	// PostUUID - пост, под которым живёт ресурс (для поста - он сам).
	PostUUID() string
	isRef()
}

type PostRef struct {
	Post *domain.Post
}

func (r PostRef) Target() domain.Target {
	return domain.Target{Kind: domain.PostKind, UUID: r.Post.UUID}
}

func (r PostRef) Author() string   { return r.Post.Author }
func (r PostRef) PostUUID() string { return r.Post.UUID }
func (PostRef) isRef()             {}

type CommentRef struct {
	Comment *domain.Comment
}

func (r CommentRef) Target() domain.Target {
	return domain.Target{Kind: domain.CommentKind, UUID: r.Comment.UUID}
}

func (r CommentRef) Author() string   { return r.Comment.Author }
func (r CommentRef) PostUUID() string { return r.Comment.UnderPost }
func (CommentRef) isRef()             {}

// Counts возвращает агрегаты оценок ресурса на момент чтения.
func Counts(ref Ref) domain.MarkCounts {
	switch r := ref.(type) {
	case PostRef:
		return r.Post.Counts()
	case CommentRef:
		return r.Comment.Counts()
	}
	return domain.MarkCounts{}
}
