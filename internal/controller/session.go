// Package controller связывает вошедшего пользователя с операциями над ресурсами.
package controller

import (
	"context"

	"github.com/UkralStul/school-board/internal/account"
	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/resource"
)

type Controller struct {
	accounts  *account.Service
	resources *resource.Service
}

func New(accounts *account.Service, resources *resource.Service) *Controller {
	return &Controller{accounts: accounts, resources: resources}
}

// Open проверяет учетные данные и открывает сессию.
func (c *Controller) Open(ctx context.Context, username, password string) (*Session, error) {
	user, err := c.accounts.SignIn(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &Session{user: user, accounts: c.accounts, resources: c.resources}, nil
}

// Session - операции от имени одного пользователя. Каждая возвращает
// перечитанный из хранилища результат.
type Session struct {
	user      *domain.User
	accounts  *account.Service
	resources *resource.Service
}

// Model - пользователь сессии.
func (s *Session) Model() *domain.User {
	return s.user
}

func (s *Session) IsOwnerOf(ref resource.Ref) bool {
	return ref.Author() == s.user.Username
}

func (s *Session) Publish(ctx context.Context, title, content string, tags []string) (*domain.Post, error) {
	return s.resources.PublishPost(ctx, s.user.Username, title, content, tags)
}

func (s *Session) Like(ctx context.Context, uuid string) (resource.Ref, error) {
	return s.Mark(ctx, uuid, true)
}

func (s *Session) Dislike(ctx context.Context, uuid string) (resource.Ref, error) {
	return s.Mark(ctx, uuid, false)
}

// Mark ставит оценку ресурсу uuid.
func (s *Session) Mark(ctx context.Context, uuid string, liked bool) (resource.Ref, error) {
	ref, err := s.resources.Find(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if _, err := s.resources.Mark(ctx, ref, s.user.Username, liked); err != nil {
		return nil, err
	}
	return s.resources.Reload(ctx, ref)
}

func (s *Session) CancelMark(ctx context.Context, uuid string) (resource.Ref, error) {
	ref, err := s.resources.Find(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if _, err := s.resources.CancelMark(ctx, ref, s.user.Username); err != nil {
		return nil, err
	}
	return s.resources.Reload(ctx, ref)
}

// Comment отвечает на пост или комментарий uuid.
func (s *Session) Comment(ctx context.Context, uuid, content string) (*domain.Comment, error) {
	ref, err := s.resources.Find(ctx, uuid)
	if err != nil {
		return nil, err
	}
	return s.resources.Comment(ctx, ref, content, s.user.Username)
}

func (s *Session) Edit(ctx context.Context, uuid, content string) (resource.Ref, error) {
	ref, err := s.resources.Find(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := s.resources.Edit(ctx, ref, content, s.user); err != nil {
		return nil, err
	}
	return s.resources.Reload(ctx, ref)
}

func (s *Session) EditTitle(ctx context.Context, uuid, title string) (*domain.Post, error) {
	ref, err := s.resources.Find(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := s.resources.EditTitle(ctx, ref, title, s.user); err != nil {
		return nil, err
	}
	return s.resources.Post(ctx, uuid)
}

// ChangeFields меняет профиль и обновляет пользователя сессии.
func (s *Session) ChangeFields(ctx context.Context, changes []domain.FieldChange) (*domain.User, error) {
	if err := s.accounts.ChangeFields(ctx, s.user, changes); err != nil {
		return nil, err
	}
	user, err := s.accounts.Profile(ctx, s.user.Username)
	if err != nil {
		return nil, err
	}
	s.user = user
	return user, nil
}
