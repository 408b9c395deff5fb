package web

import (
	"embed"
	"html/template"
	"io"

	"github.com/pkg/errors"

	"github.com/imperator765/swpanel/state"
)

//go:embed templates/index.html
var templatesFs embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFs, "templates/index.html"))

// Row is one switch control line: label, current value and whether the
// control accepts input.
type Row struct {
	Name     string
	On       bool
	Disabled bool
}

// View is everything the dashboard page shows.
type View struct {
	Title     string
	Rows      []Row
	Connected bool
	Error     string
	Dark      bool
}

// BuildView projects a store snapshot into a view. It is a pure function:
// no state mutation originates here, the theme flag comes in from a cookie.
func BuildView(snap state.Snapshot, dark bool) View {
	view := View{
		Title:     "Switch Panel",
		Connected: snap.Connected,
		Error:     snap.Error,
		Dark:      dark,
	}

	for _, sv := range snap.Switches {
		view.Rows = append(view.Rows, Row{
			Name:     sv.Name,
			On:       sv.IsOn(),
			Disabled: !snap.Connected,
		})
	}

	return view
}

// Render writes the dashboard page for a view.
func Render(w io.Writer, view View) error {
	err := indexTemplate.Execute(w, view)
	if err != nil {
		return errors.Wrap(err, "failed to render dashboard page")
	}
	return nil
}
