package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/ctrack/internal/errors"
	"github.com/hpungsan/ctrack/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "visits" or "check"
}

// VisitsPageData is the template data for the visit list.
type VisitsPageData struct {
	PageData
	Items         []ops.VisitItem
	Total         int
	RetentionDays int
	Message       string
}

// CheckPageData is the template data for the check page. Result is nil
// until a URL has been submitted.
type CheckPageData struct {
	PageData
	URL    string
	DryRun bool
	Result *ops.CheckOutput
	Report template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	log       zerolog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
// Times are shown in loc.
func NewRenderer(templateFS fs.FS, version string, loc *time.Location, log zerolog.Logger) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	funcMap := template.FuncMap{
		"add":        func(a, b int) int { return a + b },
		"formatTime": func(v any) string { return formatTime(v, loc) },
		"summary":    ops.Summary,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"visits": "visits.html",
		"check":  "check.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		log:       log,
	}
}

// renderPage renders a named page template with HTTP 200.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given status.
// Output is buffered so a template error never leaves a half-written page.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.log.Error().Str("template", name).Msg("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.log.Error().Err(err).Str("template", name).Msg("template execution error")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error as JSON when the client asks for it, and
// as the error page otherwise.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var cErr *errors.CtrackError
	if !stderrors.As(err, &cErr) {
		cErr = errors.NewInternal(err)
	}
	if cErr.Code == errors.ErrInternal {
		r.log.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
	}

	status := cErr.Status
	message := cErr.Message

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(cErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark. Raw HTML in
// the input is not passed through.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(buf.String())
}

// formatTime formats a time.Time or *time.Time as "2006-01-02 15:04" in loc.
// A nil pointer reads "never".
func formatTime(v any, loc *time.Location) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.In(loc).Format("2006-01-02 15:04")
	case *time.Time:
		if t == nil {
			return "never"
		}
		return formatTime(*t, loc)
	}
	return ""
}
