package notification

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/gitjobs/gitjobs/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Render produces the subject and HTML body for a notification. A missing or
// invalid template payload is a render error; the caller records it on the
// row instead of sending.
func Render(kind model.NotificationKind, data json.RawMessage) (subject, body string, err error) {
	if len(data) == 0 || string(data) == "null" {
		return "", "", fmt.Errorf("missing template data for %q notification", kind)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", "", fmt.Errorf("error parsing template data: %w", err)
	}

	var name string
	switch kind {
	case model.NotificationEmailVerification:
		name, subject = "email_verification.html", "Verify your email address"
	case model.NotificationTeamInvitation:
		name, subject = "team_invitation.html", "You have been invited to join a team"
	default:
		return "", "", fmt.Errorf("no template for notification kind %q", kind)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, payload); err != nil {
		return "", "", fmt.Errorf("error rendering %s: %w", name, err)
	}
	return subject, buf.String(), nil
}
