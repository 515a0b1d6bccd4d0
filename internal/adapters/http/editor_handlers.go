package httpadapter

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

// multipartOverhead covers form boundaries and headers around the file part.
const multipartOverhead = 64 << 10

type criterionTarget struct {
	id       string
	category domain.CategoryKey
	key      string
}

func targetFromRequest(r *http.Request) criterionTarget {
	return criterionTarget{
		id:       chi.URLParam(r, "id"),
		category: domain.CategoryKey(chi.URLParam(r, "category")),
		key:      chi.URLParam(r, "key"),
	}
}

func (rt *Router) toggleEvaluation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value domain.Evaluation `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t := targetFromRequest(r)
	eval, err := rt.services.Editor.ToggleEvaluation(r.Context(), t.id, t.category, t.key, req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.Evaluation{"eval": eval})
}

func (rt *Router) setComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t := targetFromRequest(r)
	if err := rt.services.Editor.SetComment(r.Context(), t.id, t.category, t.key, req.Text); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) setPhoto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t := targetFromRequest(r)
	if err := rt.services.Editor.SetPhoto(r.Context(), t.id, t.category, t.key, req.URL); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) clearPhoto(w http.ResponseWriter, r *http.Request) {
	t := targetFromRequest(r)
	if err := rt.services.Editor.ClearPhoto(r.Context(), t.id, t.category, t.key); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	if limit := rt.cfg.UploadMaxBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, domain.Invalid("upload photo", "photo exceeds %d bytes", rt.cfg.UploadMaxBytes))
			return
		}
		writeError(w, r, domain.Invalid("upload photo", "multipart field 'file' is required"))
		return
	}
	defer file.Close()

	t := targetFromRequest(r)
	url, err := rt.services.Editor.UploadPhoto(r.Context(), t.id, t.category, t.key, ports.PhotoUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (rt *Router) flushComments(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.Editor.FlushComments(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) setGoldenRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value *bool `json:"value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Value == nil {
		writeError(w, r, domain.Invalid("set golden rule", "value is required"))
		return
	}
	id, key := chi.URLParam(r, "id"), chi.URLParam(r, "key")
	if err := rt.services.Editor.SetGoldenRule(r.Context(), id, key, *req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
