package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies the template used to render a notification.
type NotificationKind string

const (
	NotificationEmailVerification NotificationKind = "email-verification"
	NotificationTeamInvitation    NotificationKind = "team-invitation"
)

// ParseNotificationKind converts the database representation of a kind back
// into a NotificationKind.
func ParseNotificationKind(s string) (NotificationKind, error) {
	switch k := NotificationKind(s); k {
	case NotificationEmailVerification, NotificationTeamInvitation:
		return k, nil
	default:
		return "", fmt.Errorf("invalid notification kind %q", s)
	}
}

// NewNotification describes a notification to be enqueued. TemplateData is an
// opaque payload handed to the template when the notification is rendered.
type NewNotification struct {
	Kind         NotificationKind
	UserID       uuid.UUID
	TemplateData json.RawMessage
}

// Notification is a queued notification row. Rows are immutable once
// enqueued except for Processed, ProcessedAt and Error, which the delivery
// worker sets exactly once.
type Notification struct {
	ID           uuid.UUID
	Kind         NotificationKind
	UserID       uuid.UUID
	TemplateData json.RawMessage
	Processed    bool
	ProcessedAt  *time.Time
	Error        *string
}
