package server

import (
	"embed"
	"html/template"

	"github.com/KaramelBytes/readmegen-cli/internal/readme"
	"github.com/KaramelBytes/readmegen-cli/internal/render"
	"github.com/KaramelBytes/readmegen-cli/internal/workflow"
)

const (
	pageHome = "home"
	pageRepo = "repo"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"humanDate": readme.HumanDate,
}).ParseFS(templateFS, "templates/page.html"))

type pageData struct {
	Kind          string
	Theme         string
	State         workflow.State
	Flashes       []Flash
	Owner         string
	Repo          string
	Raw           bool
	Preview       template.HTML
	Outline       render.Outline
	Filename      string
	Model         string
	HasCredential bool
	Path          string
}
