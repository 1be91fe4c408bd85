package notify

import (
	"fmt"
	"strings"

	"assistance-workflow/internal/models"
)

type template struct {
	Subject string
	Body    string
	SMS     string
}

var templates = map[models.NotificationType]template{
	models.NotificationInterviewScheduled: {
		Subject: "Application {{referenceNo}} approved for interview",
		Body: "Dear {{name}},\n\n" +
			"Your assistance application {{referenceNo}} has been approved for interview.\n" +
			"Please come to {{office}} on {{interviewDate}} at {{interviewTime}} and bring a valid ID.\n",
		SMS: "{{office}}: Application {{referenceNo}} approved. Interview on {{interviewDate}} {{interviewTime}}.",
	},
	models.NotificationRejected: {
		Subject: "Application {{referenceNo}} was not approved",
		Body: "Dear {{name}},\n\n" +
			"We regret that your assistance application {{referenceNo}} was not approved.\n" +
			"Reason: {{reason}}\n\n" +
			"You may visit {{office}} for clarification.\n",
		SMS: "{{office}}: Application {{referenceNo}} not approved. Reason: {{reason}}",
	},
	models.NotificationReadyForRelease: {
		Subject: "Assistance for {{referenceNo}} is ready for release",
		Body: "Dear {{name}},\n\n" +
			"The assistance for application {{referenceNo}} is ready for release.\n" +
			"Please claim it at {{office}} and bring your reference number and a valid ID.\n",
		SMS: "{{office}}: Assistance for {{referenceNo}} is ready for release. Bring a valid ID.",
	},
}

func templateData(app *models.Application, office string) map[string]interface{} {
	data := map[string]interface{}{
		"name":        app.Applicant.FullName(),
		"referenceNo": app.ReferenceNo,
		"reason":      app.RejectionReason,
		"office":      office,
	}
	if app.Interview != nil {
		data["interviewDate"] = app.Interview.Date
		data["interviewTime"] = app.Interview.Time
	}
	return data
}

// renderTemplate substitutes {{key}} placeholders in a single left-to-right
// pass and drops the ones with no value. Substituted values are written as
// is and never scanned for placeholders themselves.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end == -1 {
			break
		}
		end += start
		b.WriteString(rest[:start])
		switch v := data[rest[start+2:end]].(type) {
		case nil:
		case string:
			b.WriteString(v)
		default:
			fmt.Fprintf(&b, "%v", v)
		}
		rest = rest[end+2:]
	}
	b.WriteString(rest)

	return b.String()
}
