package repository

import (
	"context"
	"database/sql"
	"time"

	guard "github.com/goliatone/go-session-guard"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// GuardEventModel is the Bun model for recorded guard activity.
type GuardEventModel struct {
	bun.BaseModel `bun:"table:guard_events"`

	ID         uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	EventType  string         `bun:"event_type,notnull"`
	UserID     string         `bun:"user_id"`
	Path       string         `bun:"path"`
	Decision   string         `bun:"decision"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
	CreatedAt  time.Time      `bun:"created_at,default:current_timestamp"`
}

// GuardEventRepository persists guard activity events using Bun. It
// implements guard.ActivitySink so it can plug straight into the route
// guard and cookie store.
type GuardEventRepository struct {
	db *bun.DB
}

var _ guard.ActivitySink = &GuardEventRepository{}

// NewGuardEventRepository creates a new repository.
func NewGuardEventRepository(db *bun.DB) *GuardEventRepository {
	return &GuardEventRepository{db: db}
}

// Record implements guard.ActivitySink.
func (r *GuardEventRepository) Record(ctx context.Context, event guard.ActivityEvent) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	model := &GuardEventModel{
		ID:         uuid.New(),
		EventType:  string(event.EventType),
		UserID:     event.UserID,
		Path:       event.Path,
		Decision:   event.Decision,
		Metadata:   event.Metadata,
		OccurredAt: occurred,
	}

	_, err := r.db.NewInsert().
		Model(model).
		Exec(ctx)

	return err
}

// ListByUser returns a user's events, newest first.
func (r *GuardEventRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*GuardEventModel, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []*GuardEventModel
	err := r.db.NewSelect().
		Model(&models).
		Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return []*GuardEventModel{}, nil
		}
		return nil, err
	}

	return models, nil
}

// CountByType reports how many events of the given type were recorded since
// the cutoff. Useful for alerting on deferred cookie writes.
func (r *GuardEventRepository) CountByType(ctx context.Context, eventType guard.ActivityEventType, since time.Time) (int, error) {
	return r.db.NewSelect().
		Model((*GuardEventModel)(nil)).
		Where("event_type = ? AND occurred_at >= ?", string(eventType), since).
		Count(ctx)
}
