package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/resource"
)

type errorBody struct {
	Error  string                  `json:"error"`
	Errors domain.ValidationErrors `json:"errors,omitempty"`
}

// resourceView - пост или комментарий с указанием вида.
type resourceView struct {
	Kind    string          `json:"kind"`
	Post    *domain.Post    `json:"post,omitempty"`
	Comment *domain.Comment `json:"comment,omitempty"`
}

func viewOf(ref resource.Ref) resourceView {
	switch r := ref.(type) {
	case resource.PostRef:
		return resourceView{Kind: domain.PostKind.String(), Post: r.Post}
	case resource.CommentRef:
		return resourceView{Kind: domain.CommentKind.String(), Comment: r.Comment}
	}
	return resourceView{}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *handler) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// fail переводит доменную ошибку в ответ. Подробности сбоев хранилища
// остаются в логе.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Errors: verrs})
	case errors.Is(err, domain.ErrInvalidContent):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, domain.ErrNotAuthor):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrWrongUsername), errors.Is(err, domain.ErrWrongPassword):
		w.Header().Set("WWW-Authenticate", `Basic realm="school-board"`)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "wrong credentials"})
	case errors.Is(err, domain.ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrAuthorNotFound),
		errors.Is(err, domain.ErrTargetPostNotFound),
		errors.Is(err, domain.ErrParentCommentNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	default:
		h.Logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
