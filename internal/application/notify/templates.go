package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/policy"
)

// Data fills a notification template
type Data struct {
	RecipientName    string
	OrganizationName string
	ActorName        string
	ExpenseType      string
	Description      string
	Amount           float64
	ApprovedAmount   *float64
	CustomAmount     bool
	Reason           string
	Comment          string
	Link             string
}

type phrasing struct {
	subject     string
	statusLabel string
	lead        string
}

var phrasings = map[Kind]phrasing{
	KindSubmitted: {
		subject:     "New expense submitted for your approval",
		statusLabel: "Awaiting your approval",
		lead:        "{{.ActorName}} submitted an expense that needs your review.",
	},
	KindManagerApproved: {
		subject:     "Your expense has been approved by your manager",
		statusLabel: "Approved by manager",
		lead:        "Your manager approved your expense. It now goes to finance.",
	},
	KindManagerRejected: {
		subject:     "Your expense has been rejected by your manager",
		statusLabel: "Rejected by manager",
		lead:        "Your manager rejected your expense. You can edit and resubmit it.",
	},
	KindFinanceApproved: {
		subject:     "Your expense has been approved by finance",
		statusLabel: "Approved by finance",
		lead:        "Finance approved your expense and it is queued for payment.",
	},
	KindFinanceRejected: {
		subject:     "Your expense has been rejected by finance",
		statusLabel: "Rejected by finance",
		lead:        "Finance rejected your expense. You can edit and resubmit it.",
	},
	KindPaymentProcessed: {
		subject:     "Your expense payment has been processed",
		statusLabel: "Payment has been processed",
		lead:        "The payment for your expense has been processed.",
	},
	KindPaymentNotProcessed: {
		subject:     "Your expense payment has been rejected",
		statusLabel: "Payment has been rejected",
		lead:        "Finance could not process the payment for your expense.",
	},
	KindComment: {
		subject:     "New comment on expense",
		statusLabel: "New comment",
		lead:        "{{.ActorName}} commented on an expense.",
	},
}

var customPhrasings = map[Kind]phrasing{
	KindManagerApproved: {
		subject:     "Your expense has been approved by your manager with a custom amount",
		statusLabel: "Approved by manager (custom amount)",
		lead:        "Your manager approved your expense for {{money .ApprovedAmount}} instead of the {{money .Amount}} you requested. It now goes to finance.",
	},
	KindFinanceApproved: {
		subject:     "Your expense has been approved by finance with a custom amount",
		statusLabel: "Approved by finance (custom amount)",
		lead:        "Finance approved your expense for {{money .ApprovedAmount}} instead of the {{money .Amount}} you requested. It is queued for payment.",
	},
}

const bodyTemplate = `Hi {{if .RecipientName}}{{.RecipientName}}{{else}}there{{end}},

{{lead .}}

Expense:  {{.ExpenseType}}{{if .Description}} - {{.Description}}{{end}}
Amount:   {{money .Amount}}
{{- if .CustomAmount}}
Approved: {{money .ApprovedAmount}}
{{- end}}
Status:   {{status}}
{{- if .Reason}}
Reason:   {{.Reason}}
{{- end}}
{{- if .Comment}}

"{{.Comment}}"
{{- end}}
{{- if .Link}}

Open the expense: {{.Link}}
{{- end}}
{{- if .OrganizationName}}

{{.OrganizationName}} expenses
{{- end}}
`

func money(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return policy.FormatAmount(x)
	case *float64:
		if x == nil {
			return ""
		}
		return policy.FormatAmount(*x)
	}
	return fmt.Sprint(v)
}

// Phrasing returns the subject and status label for a template
func Phrasing(kind Kind, custom bool) (subject, statusLabel string, ok bool) {
	p, ok := lookup(kind, custom)
	return p.subject, p.statusLabel, ok
}

func lookup(kind Kind, custom bool) (phrasing, bool) {
	if custom {
		if p, ok := customPhrasings[kind]; ok {
			return p, true
		}
	}
	p, ok := phrasings[kind]
	return p, ok
}

// Render builds the message for one recipient.
// Custom amount phrasing only applies to approvals carrying an approved amount.
func Render(kind Kind, d Data) (port.Message, error) {
	d.CustomAmount = d.CustomAmount && d.ApprovedAmount != nil
	p, ok := lookup(kind, d.CustomAmount)
	if !ok {
		return port.Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}

	funcs := template.FuncMap{
		"money":  money,
		"status": func() string { return p.statusLabel },
	}
	lead, err := template.New("lead").Funcs(funcs).Parse(p.lead)
	if err != nil {
		return port.Message{}, fmt.Errorf("failed to parse lead for %s: %w", kind, err)
	}
	funcs["lead"] = func(data Data) (string, error) {
		var buf bytes.Buffer
		err := lead.Execute(&buf, data)
		return buf.String(), err
	}

	body, err := template.New("body").Funcs(funcs).Parse(bodyTemplate)
	if err != nil {
		return port.Message{}, fmt.Errorf("failed to parse body for %s: %w", kind, err)
	}

	var buf bytes.Buffer
	if err := body.Execute(&buf, d); err != nil {
		return port.Message{}, fmt.Errorf("failed to render %s: %w", kind, err)
	}

	return port.Message{
		Kind:        string(kind),
		Subject:     p.subject,
		Body:        buf.String(),
		StatusLabel: p.statusLabel,
	}, nil
}
