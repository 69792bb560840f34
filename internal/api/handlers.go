package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/UkralStul/school-board/internal/account"
	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/query"
	"github.com/UkralStul/school-board/internal/resource"
	"github.com/go-chi/chi/v5"
)

// === Users ===

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "malformed request body")
		return
	}
	user, err := h.Accounts.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).Model())
}

func (h *handler) changeFields(w http.ResponseWriter, r *http.Request) {
	var changes []domain.FieldChange
	if err := decode(r, &changes); err != nil {
		h.badRequest(w, "malformed request body")
		return
	}
	user, err := sessionFrom(r.Context()).ChangeFields(r.Context(), changes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// === Posts ===

type publishRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (h *handler) publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "malformed request body")
		return
	}
	post, err := sessionFrom(r.Context()).Publish(r.Context(), req.Title, req.Content, req.Tags)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// parsePostFilter читает ?tags=a,b&author=&sort_by=&direction=&page=&limit=.
func parsePostFilter(r *http.Request) (resource.PostFilter, error) {
	q := r.URL.Query()
	var f resource.PostFilter
	for _, tag := range strings.Split(q.Get("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			f.Tags = append(f.Tags, tag)
		}
	}
	f.Author = q.Get("author")

	key := query.ParsePostKey(q.Get("sort_by"))
	switch q.Get("direction") {
	case "", "up":
		f.Order = query.Up(key)
	case "down":
		f.Order = query.Down(key)
	default:
		return f, domain.ValidationErrors{{Field: "direction", Rule: domain.RuleInvalid}}
	}

	var errs domain.ValidationErrors
	page, size := 1, query.DefaultPageSize
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, domain.ValidationError{Field: "page", Rule: domain.RuleInvalid})
		}
		page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil || n < 1:
			errs = append(errs, domain.ValidationError{Field: "limit", Rule: domain.RuleInvalid})
		case n > query.MaxPageSize:
			errs = append(errs, domain.ValidationError{Field: "limit", Rule: domain.RuleTooLong})
		}
		size = n
	}
	if len(errs) > 0 {
		return f, errs
	}
	if !query.PageFits(page, size) {
		return f, domain.ValidationErrors{{Field: "page", Rule: domain.RuleInvalid}}
	}
	f.Limit = query.Page(page, size)
	return f, nil
}

func (h *handler) listPosts(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePostFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	posts, err := h.Resources.Posts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

type titleRequest struct {
	Title string `json:"title"`
}

func (h *handler) editTitle(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "malformed request body")
		return
	}
	post, err := sessionFrom(r.Context()).EditTitle(r.Context(), chi.URLParam(r, "uuid"), req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// === Resources ===

func (h *handler) getResource(w http.ResponseWriter, r *http.Request) {
	ref, err := h.Resources.Find(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ref))
}

type contentRequest struct {
	Content string `json:"content"`
}

func (h *handler) edit(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "malformed request body")
		return
	}
	ref, err := sessionFrom(r.Context()).Edit(r.Context(), chi.URLParam(r, "uuid"), req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ref))
}

func (h *handler) comment(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w, "malformed request body")
		return
	}
	comment, err := sessionFrom(r.Context()).Comment(r.Context(), chi.URLParam(r, "uuid"), req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *handler) mark(w http.ResponseWriter, r *http.Request) {
	liked, err := strconv.ParseBool(r.URL.Query().Get("liked"))
	if err != nil {
		h.fail(w, r, domain.ValidationErrors{{Field: "liked", Rule: domain.RuleInvalid}})
		return
	}
	ref, err := sessionFrom(r.Context()).Mark(r.Context(), chi.URLParam(r, "uuid"), liked)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resource.Counts(ref))
}

func (h *handler) cancelMark(w http.ResponseWriter, r *http.Request) {
	ref, err := sessionFrom(r.Context()).CancelMark(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resource.Counts(ref))
}

func (h *handler) replies(w http.ResponseWriter, r *http.Request) {
	ref, err := h.Resources.Find(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	thread, err := h.Resources.Thread(r.Context(), ref)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}
