package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (rt *Router) getScorecard(w http.ResponseWriter, r *http.Request) {
	card, err := rt.services.Reports.Scorecard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (rt *Router) getReport(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.services.Reports.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) downloadReport(w http.ResponseWriter, r *http.Request) {
	rendered, err := rt.services.Reports.Render(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rendered.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(rendered.PDF)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.PDF)
}

func (rt *Router) sendReport(w http.ResponseWriter, r *http.Request) {
	queued, err := rt.services.Reports.RequestSend(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued, "sent": !queued})
}

// exportAudits buffers the workbook so a failure still yields a JSON error.
func (rt *Router) exportAudits(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := rt.services.Exporter.ExportXLSX(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("audits-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
