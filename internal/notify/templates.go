package notify

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

// ErrUnknownKind is returned for a notification kind without a template.
var ErrUnknownKind = errors.New("notify: unknown notification kind")

// Email is a rendered notification.
type Email struct {
	Subject string
	Body    string
}

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[orders.NotificationKind]emailTemplate{
	orders.NotifyOrderShipped: {
		subject: template.Must(template.New("shipped.subject").Parse(`Your order #{{.order_id}} has been shipped`)),
		body: template.Must(template.New("shipped.body").Option("missingkey=zero").Parse(
			`Good news! Your order #{{.order_id}} is on its way.
{{- if .tracking_number}}

Tracking number: {{.tracking_number}}
{{- end}}
{{- if .estimated_delivery}}
Estimated delivery: {{.estimated_delivery}}
{{- end}}

Thank you for shopping with us.
`)),
	},
	orders.NotifyReturnResolved: {
		subject: template.Must(template.New("return.subject").Parse(`Update on your return for order #{{.order_id}}`)),
		body: template.Must(template.New("return.body").Option("missingkey=zero").Parse(
			`Your return request {{.return_id}} for order #{{.order_id}} is now {{.status}}.
{{- if .resolution}}

{{.resolution}}
{{- end}}
`)),
	},
}

// Render builds the email for msg.
func Render(msg Message) (Email, error) {
	tpl, ok := templates[msg.Kind]
	if !ok {
		return Email{}, fmt.Errorf("%w %q", ErrUnknownKind, msg.Kind)
	}
	data := msg.Context
	if data == nil {
		data = map[string]string{}
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Email{}, fmt.Errorf("render %s subject: %w", msg.Kind, err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return Email{}, fmt.Errorf("render %s body: %w", msg.Kind, err)
	}
	return Email{Subject: subject.String(), Body: body.String()}, nil
}
