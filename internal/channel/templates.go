package channel

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/cuongbtq/interpreter-booking/internal/booking/notify"
)

const (
	greeting  = "Hej {{.user}},\n\n"
	signature = "\n\nMed vänliga hälsningar\nDigitalTolk"
	jobLine   = "Bokning #{{.job_id}}, {{due .job.Due}}, {{.job.Duration}} min."
)

var emailBodies = map[string]string{
	notify.TemplateJobCreated:             greeting + "Vi har mottagit er tolkbokning.\n" + jobLine + signature,
	notify.TemplateJobAccepted:            greeting + "En tolk har accepterat er bokning.\n" + jobLine + signature,
	notify.TemplateJobAssignedTranslator:  greeting + "Du har tilldelats en tolkning.\n" + jobLine + signature,
	notify.TemplateSessionEnded:           greeting + "Tolkningen är avslutad{{with .for_text}} ({{.}}){{end}}. Tid: {{.session_time}}.\n" + jobLine + signature,
	notify.TemplateJobCancelTranslator:    greeting + "Bokningen har avbokats.\n" + jobLine + signature,
	notify.TemplateStatusChangedCustomer:  greeting + "Status för er bokning har ändrats till {{.job.Status}}.\n" + jobLine + signature,
	notify.TemplateJobReopened:            greeting + "Bokningen har öppnats igen.\n" + jobLine + signature,
	notify.TemplateChangedDate:            greeting + "Tiden för bokningen har ändrats{{with .old_time}} från {{.}}{{end}}.\n" + jobLine + signature,
	notify.TemplateChangedTranslatorOld:   greeting + "Du är inte längre tolk för bokningen.\n" + jobLine + signature,
	notify.TemplateChangedTranslatorNew:   greeting + "Du har blivit tolk för bokningen.\n" + jobLine + signature,
	notify.TemplateChangedTranslatorOwner: greeting + "Tolken för er bokning har bytts ut.\n" + jobLine + signature,
	notify.TemplateChangedLanguage:        greeting + "Språket för bokningen har ändrats.\n" + jobLine + signature,
}

var emailTemplates = template.Must(parseBodies())

func parseBodies() (*template.Template, error) {
	root := template.New("emails").Funcs(template.FuncMap{
		"due": func(v any) string {
			if t, ok := v.(interface{ Format(string) string }); ok {
				return t.Format("2006-01-02 15:04")
			}
			return fmt.Sprint(v)
		},
	})

	for name, body := range emailBodies {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
	}
	return root, nil
}

// renderEmail executes the named body template with data
func renderEmail(name string, data map[string]any) (string, error) {
	tmpl := emailTemplates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
