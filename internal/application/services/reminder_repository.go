package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/infrastructure/tracing"
	"github.com/geominder/core/internal/ports"
)

// Repository operation names used in spans, metrics and logs
const (
	OpGetReminders       = "get_reminders"
	OpGetReminder        = "get_reminder"
	OpSaveReminder       = "save_reminder"
	OpDeleteReminder     = "delete_reminder"
	OpDeleteAllReminders = "delete_all_reminders"
)

var _ ports.ReminderRepository = (*ReminderRepository)(nil)

// ReminderRepository wraps a ReminderStore with the Result envelope and a
// busy counter that is held for the whole duration of every operation.
type ReminderRepository struct {
	store   ports.ReminderStore
	idling  *IdlingResource
	metrics *Metrics
	logger  *logger.Logger
}

// NewReminderRepository creates a new reminder repository. metrics may be nil.
func NewReminderRepository(store ports.ReminderStore, idling *IdlingResource, metrics *Metrics, log *logger.Logger) *ReminderRepository {
	return &ReminderRepository{
		store:   store,
		idling:  idling,
		metrics: metrics,
		logger:  log.WithComponent("reminder_repository"),
	}
}

// Idling returns the busy counter of the repository
func (r *ReminderRepository) Idling() *IdlingResource {
	return r.idling
}

// GetReminders returns every reminder in store order.
func (r *ReminderRepository) GetReminders(ctx context.Context) entities.Result[[]*entities.Reminder] {
	op := r.begin(ctx, OpGetReminders, "")
	defer op.finish()

	reminders, err := r.store.GetAll(op.ctx)
	if err != nil {
		op.fail(err)
		return entities.FailureOf[[]*entities.Reminder](entities.ErrStorageFailure, err.Error())
	}

	return entities.Success(reminders)
}

// GetReminder returns the reminder with the given id, or a not-found result
// carrying entities.ReminderNotFoundMessage.
func (r *ReminderRepository) GetReminder(ctx context.Context, id string) entities.Result[*entities.Reminder] {
	op := r.begin(ctx, OpGetReminder, id)
	defer op.finish()

	reminder, err := r.store.GetByID(op.ctx, id)
	if errors.Is(err, entities.ErrReminderNotFound) {
		op.outcome = OutcomeNotFound
		return entities.NotFound[*entities.Reminder]()
	}
	if err != nil {
		op.fail(err)
		return entities.FailureOf[*entities.Reminder](entities.ErrStorageFailure, err.Error())
	}

	return entities.Success(reminder)
}

// SaveReminder upserts the reminder. A started write is not cancelled with
// the caller's context.
func (r *ReminderRepository) SaveReminder(ctx context.Context, reminder *entities.Reminder) error {
	reminder.EnsureID()

	op := r.begin(context.WithoutCancel(ctx), OpSaveReminder, reminder.ID)
	defer op.finish()

	if err := r.store.Save(op.ctx, reminder); err != nil {
		op.fail(err)
		return fmt.Errorf("%w: %w", entities.ErrStorageFailure, err)
	}

	return nil
}

// DeleteReminder removes the reminder if present.
func (r *ReminderRepository) DeleteReminder(ctx context.Context, id string) error {
	op := r.begin(context.WithoutCancel(ctx), OpDeleteReminder, id)
	defer op.finish()

	if err := r.store.DeleteByID(op.ctx, id); err != nil {
		op.fail(err)
		return fmt.Errorf("%w: %w", entities.ErrStorageFailure, err)
	}

	return nil
}

// DeleteAllReminders empties the store.
func (r *ReminderRepository) DeleteAllReminders(ctx context.Context) error {
	op := r.begin(context.WithoutCancel(ctx), OpDeleteAllReminders, "")
	defer op.finish()

	if err := r.store.DeleteAll(op.ctx); err != nil {
		op.fail(err)
		return fmt.Errorf("%w: %w", entities.ErrStorageFailure, err)
	}

	return nil
}

// operation tracks one repository call from entry to exit.
type operation struct {
	repo       *ReminderRepository
	ctx        context.Context
	name       string
	reminderID string
	start      time.Time
	endSpan    func(error)
	outcome    string
	err        error
}

func (r *ReminderRepository) begin(ctx context.Context, name, reminderID string) *operation {
	r.idling.Increment()

	attrs := []attribute.KeyValue{attribute.String("reminder.operation", name)}
	if reminderID != "" {
		attrs = append(attrs, attribute.String("reminder.id", reminderID))
	}
	ctx, endSpan := tracing.StartSpan(ctx, "reminders."+name, attrs...)

	return &operation{
		repo:       r,
		ctx:        ctx,
		name:       name,
		reminderID: reminderID,
		start:      time.Now(),
		endSpan:    endSpan,
		outcome:    OutcomeSuccess,
	}
}

func (op *operation) fail(err error) {
	op.err = err
	op.outcome = OutcomeFailure
}

func (op *operation) finish() {
	defer op.repo.idling.Decrement()

	elapsed := time.Since(op.start)
	op.endSpan(op.err)
	op.repo.metrics.observeOperation(op.name, op.outcome, elapsed.Seconds())
	op.repo.logger.LogStorageOperation(op.name, op.reminderID, float64(elapsed.Microseconds())/1000, op.err)
}
