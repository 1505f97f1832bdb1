package mailfn

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const company = "Laila Thun Gebäudereinigung"

// SignedLink pairs a storage path with its download URL.
type SignedLink struct {
	Path string
	URL  string
}

type mailData struct {
	Heading     string
	Name        string
	Email       string
	Phone       string
	Offer       bool
	ServiceType string
	Location    string
	Message     string
	Links       []SignedLink
	Source      string
}

// mailHTMLTemplate is the HTML body. Every value is escaped by html/template.
const mailHTMLTemplate = `<h2>{{.Heading}}</h2>` +
	`<p><strong>Name:</strong> {{.Name}}<br>` +
	`<strong>E-Mail:</strong> {{.Email}}<br>` +
	`<strong>Telefon:</strong> {{or .Phone "-"}}</p>` +
	`<hr>` +
	`{{if .Offer}}<h3>Details (Angebot)</h3><ul>` +
	`<li><strong>Art der Reinigung:</strong> {{or .ServiceType "-"}}</li>` +
	`<li><strong>Adresse / Ort:</strong> {{or .Location "-"}}</li>` +
	`</ul>{{end}}` +
	`<hr>` +
	`<h3>Nachricht</h3>` +
	`<p style="white-space:pre-wrap;">{{.Message}}</p>` +
	`<hr>` +
	`{{if .Links}}<h3>Dateien (Download 7 Tage)</h3><ul>` +
	`{{range .Links}}<li><a href="{{.URL}}">{{.Path}}</a></li>{{end}}` +
	`</ul>{{else}}<p><em>Keine Dateien angehängt.</em></p>{{end}}` +
	`<hr>` +
	`<p><small>Quelle: {{.Source}}</small></p>`

const mailTextTemplate = `{{.Heading}}

Name: {{.Name}}
E-Mail: {{.Email}}
Telefon: {{or .Phone "-"}}

{{if .Offer}}Details (Angebot)
- Art der Reinigung: {{or .ServiceType "-"}}
- Adresse/Ort: {{or .Location "-"}}

{{end}}Nachricht:
{{.Message}}

{{if .Links}}Dateien (Download 7 Tage):
{{range .Links}}- {{.Path}}: {{.URL}}
{{end}}
{{else}}Dateien: keine

{{end}}Quelle: {{.Source}}`

var (
	htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(mailHTMLTemplate))
	textBody = texttemplate.Must(texttemplate.New("text").Parse(mailTextTemplate))
)

func subject(offer bool) string {
	if offer {
		return "Neue Angebotsanfrage – " + company
	}
	return "Neue Kontaktanfrage – " + company
}

func newMailData(r request, links []SignedLink, source string) mailData {
	heading := "Neue Kontaktanfrage"
	if r.isOffer() {
		heading = "Neue Angebotsanfrage"
	}
	return mailData{
		Heading:     heading,
		Name:        string(r.Name),
		Email:       string(r.Email),
		Phone:       string(r.Phone),
		Offer:       r.isOffer(),
		ServiceType: string(r.ServiceType),
		Location:    string(r.Location),
		Message:     string(r.Message),
		Links:       links,
		Source:      source,
	}
}

// render returns the HTML and plain-text bodies.
func render(d mailData) (string, string, error) {
	var h, t bytes.Buffer
	if err := htmlBody.Execute(&h, d); err != nil {
		return "", "", err
	}
	if err := textBody.Execute(&t, d); err != nil {
		return "", "", err
	}
	return h.String(), strings.TrimSpace(t.String()), nil
}
