// Package components holds the server-rendered page of the web command.
package components

import (
	"context"
	_ "embed"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

//go:embed index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

// PageData is the data rendered into the selection page.
type PageData struct {
	Title   string
	Version string
	Offline bool
}

// Page renders the selection page. Listings are loaded by the page script
// from the API.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return indexTmpl.Execute(w, data)
	})
}
