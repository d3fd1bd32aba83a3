package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/notify"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// AppName is shown in the sidebar and page titles.
const AppName = "be kind network"

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = []string{"login", "dashboard", "create"}

// StaticFS returns the embedded assets rooted at static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// page is the data every template receives.
type page struct {
	Title  string
	App    string
	Nav    string
	User   *sdk.User
	Toasts []notify.Toast
	Data   any
}

// Renderer executes the embedded page templates.
type Renderer struct {
	templates map[string]*template.Template
	logger    logrus.FieldLogger
}

// NewRenderer parses the layout with every page.
func NewRenderer(logger logrus.FieldLogger) (*Renderer, error) {
	funcs := template.FuncMap{
		"formatDate": formatDate,
		"ago":        ago,
		"dict":       dict,
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(pages)), logger: logger}
	for _, name := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render writes the named page with status. Output is buffered so a template
// failure still yields a clean 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data page) {
	tmpl, ok := r.templates[name]
	if !ok {
		r.logger.WithField("template", name).Error("unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.App = AppName

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		r.logger.WithError(err).WithField("template", name).Error("render failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// formatDate renders an API timestamp as dd/mm/yyyy, or an em dash when absent.
func formatDate(raw string) string {
	t, ok := parseTimestamp(raw)
	if !ok {
		if raw == "" {
			return "—"
		}
		return raw
	}
	return t.Format("02/01/2006")
}

func ago(raw string) string {
	t, ok := parseTimestamp(raw)
	if !ok {
		return ""
	}
	return humanize.Time(t)
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict needs key/value pairs")
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}
