package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/hpungsan/ctrack/internal/errors"
	"github.com/hpungsan/ctrack/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	deps     ops.Deps
	renderer *Renderer
}

// HandleVisits handles GET /visits: every tracked page, newest first.
func (h *Handlers) HandleVisits(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListVisits(r.Context(), h.deps)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	var message string
	if n := parseIntParam(r, "removed", -1); n >= 0 {
		message = "Removed " + strconv.Itoa(n) + " visit records."
	}

	h.renderer.renderPage(w, "visits", VisitsPageData{
		PageData: PageData{
			Title:   "Visits",
			Version: h.renderer.version,
			Nav:     "visits",
		},
		Items:         result.Items,
		Total:         result.Total,
		RetentionDays: h.deps.Config.RetentionDays,
		Message:       message,
	})
}

// HandleCheck handles GET /check?url=...&dry_run=1. Without url it shows
// the form only. A check without dry_run records the visit, exactly as
// opening the page would.
func (h *Handlers) HandleCheck(w http.ResponseWriter, r *http.Request) {
	data := CheckPageData{
		PageData: PageData{
			Title:   "Check page",
			Version: h.renderer.version,
			Nav:     "check",
		},
		URL:    r.URL.Query().Get("url"),
		DryRun: parseBoolParam(r, "dry_run"),
	}

	if data.URL == "" {
		if wantsJSON(r) {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("url is required"))
			return
		}
		h.renderer.renderPage(w, "check", data)
		return
	}

	result, err := ops.Check(r.Context(), h.deps, ops.CheckInput{URL: data.URL, DryRun: data.DryRun})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data.Title = ops.Summary(result)
	data.Result = result
	data.Report = renderMarkdown(ops.RenderMarkdown(result))
	h.renderer.renderPage(w, "check", data)
}

// HandleMarkRead handles POST /mark-read with form field url.
func (h *Handlers) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	page := r.FormValue("url")
	result, err := ops.MarkRead(r.Context(), h.deps, page)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	// Reload the page in dry-run mode so the fresh mark is not overwritten.
	http.Redirect(w, r, "/check?dry_run=1&url="+url.QueryEscape(page), http.StatusSeeOther)
}

// HandleReset handles POST /visits/reset. The form must carry confirm=true.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	result, err := ops.Reset(r.Context(), h.deps)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/visits?removed="+strconv.Itoa(result.Removed), http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
