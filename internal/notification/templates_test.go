package notification

import (
	"strings"
	"testing"

	"github.com/gitjobs/gitjobs/internal/model"
)

func TestRender_EmailVerification(t *testing.T) {
	t.Parallel()

	subject, body, err := Render(model.NotificationEmailVerification, []byte(`{"link":"https://example.org/verify/abc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Verify your email address" {
		t.Errorf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "https://example.org/verify/abc") {
		t.Errorf("expected body to contain the verification link, got %q", body)
	}
}

func TestRender_TeamInvitation(t *testing.T) {
	t.Parallel()

	subject, body, err := Render(model.NotificationTeamInvitation, []byte(`{"team_name":"infra","link":"https://example.org/join"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "You have been invited to join a team" {
		t.Errorf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "infra") || !strings.Contains(body, "https://example.org/join") {
		t.Errorf("expected body to contain the team name and link, got %q", body)
	}
}

func TestRender_MissingTemplateData(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("null")} {
		if _, _, err := Render(model.NotificationEmailVerification, data); err == nil {
			t.Errorf("expected error for template data %q", data)
		}
	}
}

func TestRender_InvalidTemplateData(t *testing.T) {
	t.Parallel()

	if _, _, err := Render(model.NotificationEmailVerification, []byte("{not json")); err == nil {
		t.Error("expected error for invalid template data")
	}
}

func TestRender_UnknownKind(t *testing.T) {
	t.Parallel()

	if _, _, err := Render(model.NotificationKind("sms"), []byte(`{}`)); err == nil {
		t.Error("expected error for unknown notification kind")
	}
}
