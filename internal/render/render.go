// Package render projects the record managers onto HTML documents. Pages
// are rebuilt from scratch on every request.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ukydev/oilchange-tracker/internal/models"
	"github.com/ukydev/oilchange-tracker/internal/records"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultPrintDelay is how long a certificate waits before opening the
// print dialog.
const DefaultPrintDelay = 500 * time.Millisecond

// Renderer writes pages and certificates.
type Renderer struct {
	tmpl       *template.Template
	branding   Branding
	printDelay time.Duration
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPrintDelay overrides DefaultPrintDelay.
func WithPrintDelay(d time.Duration) Option {
	return func(r *Renderer) {
		if d >= 0 {
			r.printDelay = d
		}
	}
}

// New parses the embedded templates.
func New(b Branding, opts ...Option) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r := &Renderer{tmpl: tmpl, branding: b.withDefaults(), printDelay: DefaultPrintDelay}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Branding returns the shop identity in use.
func (r *Renderer) Branding() Branding { return r.branding }

// Page renders the main document for st.
func (r *Renderer) Page(w io.Writer, st State) error {
	return r.tmpl.ExecuteTemplate(w, "page", BuildPage(st, r.branding))
}

// Offline renders the main document with no records and an offline banner.
func (r *Renderer) Offline(w io.Writer, today models.Date) error {
	p := BuildPage(State{Today: today}, r.branding)
	p.Offline = true
	return r.tmpl.ExecuteTemplate(w, "page", p)
}

type certificateView struct {
	Branding     Branding
	Card         WarrantyCard
	PrintedOn    string
	PrintDelayMS int64
}

// Certificate renders a standalone printable warranty certificate. The
// document opens the print dialog by itself.
func (r *Renderer) Certificate(w io.Writer, tw records.TrackedWarranty, printedOn models.Date) error {
	return r.tmpl.ExecuteTemplate(w, "certificate", certificateView{
		Branding:     r.branding,
		Card:         WarrantyCardOf(tw),
		PrintedOn:    FormatShortDate(printedOn),
		PrintDelayMS: r.printDelay.Milliseconds(),
	})
}
