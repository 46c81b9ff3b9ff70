package server

import (
	"embed"
	"html/template"
	"strconv"

	"github.com/gin-gonic/gin/render"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page templates; each is rendered inside templates/layout.html.
const (
	pageIndex      = "index"
	pageUseCase    = "usecase"
	pageConcepts   = "concepts"
	pageLRPractice = "lr_practice"
	pagePractice   = "practice"
)

var pages = []string{pageIndex, pageUseCase, pageConcepts, pageLRPractice, pagePractice}

// spanish formats numbers with Spanish separators (1.234,56).
var spanish = message.NewPrinter(language.Spanish)

// formatNumber renders v with the given number of decimals.
func formatNumber(v float64, decimals int) string {
	return spanish.Sprintf("%."+strconv.Itoa(decimals)+"f", v)
}

var templateFuncs = template.FuncMap{
	"num": formatNumber,
}

// pageRenderer is a gin render.HTMLRender holding one template set per page,
// so every page can define its own "content" block.
type pageRenderer map[string]*template.Template

func newPageRenderer() (pageRenderer, error) {
	r := pageRenderer{}
	for _, page := range pages {
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, errors.Wrapf(err, "server: parse template %s", page)
		}
		r[page] = t
	}
	return r, nil
}

// Instance implements render.HTMLRender.
func (r pageRenderer) Instance(name string, data any) render.Render {
	return render.HTML{Template: r[name], Name: "layout", Data: data}
}
