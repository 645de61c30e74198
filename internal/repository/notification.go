package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/model"
)

// NotificationRepository handles the queued notifications table.
type NotificationRepository struct {
	db database.Querier
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db database.Querier) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// PendingNotification couples a queued notification with the recipient's
// email address.
type PendingNotification struct {
	model.Notification
	Email string
}

// Enqueue adds a notification to the queue. Notification ids are UUIDv7 so
// ordering by notification_id yields enqueue order.
func (r *NotificationRepository) Enqueue(ctx context.Context, n model.NewNotification) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("error generating notification id: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		insert into notification (notification_id, kind, user_id, template_data)
		values ($1, $2, $3, $4)`,
		id, string(n.Kind), n.UserID, n.TemplateData,
	)
	if err != nil {
		return fmt.Errorf("error enqueuing notification: %w", err)
	}
	return nil
}

// GetPendingTx picks the oldest unprocessed notification and locks its row
// until the enclosing transaction resolves. Rows locked by other workers are
// skipped, so concurrent workers never pick the same notification. It
// returns database.ErrNotFound when the queue is empty.
func (r *NotificationRepository) GetPendingTx(ctx context.Context, tx pgx.Tx) (*PendingNotification, error) {
	row := tx.QueryRow(ctx, `
		select n.notification_id, n.kind, n.user_id, n.template_data, u.email
		from notification n
		join "user" u using (user_id)
		where n.processed = false
		order by n.notification_id asc
		limit 1
		for update of n skip locked`,
	)

	var (
		pending      PendingNotification
		kind         string
		templateData []byte
	)
	err := row.Scan(&pending.ID, &kind, &pending.UserID, &templateData, &pending.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting pending notification: %w", err)
	}

	pending.Kind, err = model.ParseNotificationKind(kind)
	if err != nil {
		return nil, err
	}
	pending.TemplateData = json.RawMessage(templateData)
	return &pending, nil
}

// MarkProcessedTx marks a notification as processed, recording the delivery
// error if there was one. Failed notifications are not retried.
func (r *NotificationRepository) MarkProcessedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, deliveryErr error) error {
	var errMsg *string
	if deliveryErr != nil {
		s := deliveryErr.Error()
		errMsg = &s
	}

	_, err := tx.Exec(ctx, `
		update notification
		set processed = true, processed_at = $2, error = $3
		where notification_id = $1`,
		id, time.Now(), errMsg,
	)
	if err != nil {
		return fmt.Errorf("error marking notification processed: %w", err)
	}
	return nil
}
