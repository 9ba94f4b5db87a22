package page

import (
	"embed"
	"html/template"
	"io"

	"github.com/pubike/pubike/services/appointment-service/internal/appointment"
	"github.com/pubike/pubike/services/appointment-service/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// View is the data the form template renders.
type View struct {
	Condominio      string
	ServiceProvider string
	Services        []model.ServiceType
	Fields          appointment.FormInput
	HoursOpen       string
	HoursClose      string
	Ready           bool
	ButtonLabel     string
	ButtonDisabled  bool
	BannerVisible   bool
	BannerKind      BannerKind
	BannerMessage   string
	DismissMillis   int64
}

func (p *Page) View(ready bool) View {
	return View{
		Condominio:      model.Condominio,
		ServiceProvider: model.ServiceProvider,
		Services:        model.ServiceTypes,
		Fields:          p.Fields(),
		HoursOpen:       model.ServiceHoursOpen,
		HoursClose:      model.ServiceHoursClose,
		Ready:           ready,
		ButtonLabel:     p.Button.Label(),
		ButtonDisabled:  p.Button.Disabled() || !ready,
		BannerVisible:   p.Banner.Visible(),
		BannerKind:      p.Banner.Kind(),
		BannerMessage:   p.Banner.Message(),
		DismissMillis:   DismissAfter.Milliseconds(),
	}
}

func Render(w io.Writer, v View) error {
	return indexTmpl.Execute(w, v)
}
