package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
)

type auditResponse struct {
	*domain.Audit
	StepName string `json:"step_name"`
}

type transitionResponse struct {
	Audit      auditResponse     `json:"audit"`
	Transition domain.Transition `json:"transition"`
}

func (rt *Router) auditView(audit *domain.Audit) auditResponse {
	view := auditResponse{Audit: audit}
	if rt.services.Catalog != nil {
		view.StepName = rt.services.Catalog.StepName(audit.CurrentStep)
	}
	return view
}

func (rt *Router) createAudit(w http.ResponseWriter, r *http.Request) {
	var in ports.CreateAuditInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	audit, err := rt.services.Audits.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/audits/"+audit.ID)
	writeJSON(w, http.StatusCreated, rt.auditView(audit))
}

func (rt *Router) listAudits(w http.ResponseWriter, r *http.Request) {
	summaries, err := rt.services.Audits.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []domain.AuditSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (rt *Router) getAudit(w http.ResponseWriter, r *http.Request) {
	audit, err := rt.services.Audits.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.auditView(audit))
}

func (rt *Router) deleteAudit(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.Audits.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) updateInfo(w http.ResponseWriter, r *http.Request) {
	var patch domain.InfoPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := rt.services.Audits.UpdateInfo(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	rt.getAudit(w, r)
}

func (rt *Router) updateExpertise(w http.ResponseWriter, r *http.Request) {
	var patch domain.ExpertisePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := rt.services.Audits.UpdateExpertise(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	rt.getAudit(w, r)
}

func (rt *Router) advance(w http.ResponseWriter, r *http.Request) {
	audit, transition, err := rt.services.Wizard.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Audit: rt.auditView(audit), Transition: transition})
}

func (rt *Router) retreat(w http.ResponseWriter, r *http.Request) {
	audit, transition, err := rt.services.Wizard.Retreat(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Audit: rt.auditView(audit), Transition: transition})
}

func (rt *Router) setStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step *int `json:"step"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Step == nil {
		writeError(w, r, domain.Invalid("set step", "step is required"))
		return
	}
	audit, err := rt.services.Wizard.SetStep(r.Context(), chi.URLParam(r, "id"), domain.Step(*req.Step))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.auditView(audit))
}
