package mail

import (
	"fmt"
	"html/template"

	"funnel-billing/internal/infra/i18n"
)

const (
	tmplSetup      = "setup"
	tmplWelcome    = "welcome"
	tmplConfirm    = "confirm"
	tmplCommission = "commission"
)

var bodies = map[string]string{
	tmplSetup: `<p>{{t "mail.setup.greeting" .Name}}</p>
<p>{{t "mail.setup.body" .Email}}</p>
<p><a href="{{.Link}}">{{t "mail.setup.cta"}}</a>. {{t "mail.setup.expiry" .ExpiresAt}}</p>`,
	tmplWelcome: `<p>{{t "mail.welcome.greeting" .Name}}</p>
<p>{{t "mail.welcome.body" .Plan}} <a href="{{.AppURL}}">{{.AppURL}}</a></p>
<p>{{t "mail.welcome.email"}}: {{.Email}}<br>{{t "mail.welcome.password"}}: <code>{{.Password}}</code></p>
<p>{{t "mail.welcome.change"}}</p>`,
	tmplConfirm: `<p>{{t "mail.confirm.greeting" .Name}}</p>
<p>{{if .EndDate}}{{t "mail.confirm.until" .Item .EndDate}}{{else}}{{t "mail.confirm.lifetime" .Item}}{{end}}</p>`,
	tmplCommission: `<p>{{t "mail.commission.greeting" .Name}}</p>
<p>{{t "mail.commission.body" .Commission .Currency}}</p>
<p>{{if .ReleaseAt}}{{t "mail.commission.release" .ReleaseAt}}{{else}}{{t "mail.commission.release_pending"}}{{end}}</p>`,
}

// parseTemplates binds every body to tr so copy comes from the locale files.
func parseTemplates(tr *i18n.Translator) (*template.Template, error) {
	root := template.New("mail").Funcs(template.FuncMap{"t": tr.T})
	for name, body := range bodies {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return root, nil
}
