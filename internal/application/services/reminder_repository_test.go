package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/geominder/core/internal/adapters/repository"
	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

var errDiskFull = errors.New("disk full")

// brokenStore fails every call and records the busy count seen inside it.
type brokenStore struct {
	idling   *IdlingResource
	observed []int64
}

func (s *brokenStore) observe() error {
	s.observed = append(s.observed, s.idling.Count())
	return errDiskFull
}

func (s *brokenStore) Save(ctx context.Context, r *entities.Reminder) error { return s.observe() }
func (s *brokenStore) GetAll(ctx context.Context) ([]*entities.Reminder, error) {
	return nil, s.observe()
}
func (s *brokenStore) GetByID(ctx context.Context, id string) (*entities.Reminder, error) {
	return nil, s.observe()
}
func (s *brokenStore) DeleteByID(ctx context.Context, id string) error { return s.observe() }
func (s *brokenStore) DeleteAll(ctx context.Context) error            { return s.observe() }

func newRepository(t *testing.T, store ports.ReminderStore) (*ReminderRepository, *Metrics) {
	t.Helper()
	idling := NewIdlingResource("reminders")
	metrics := NewMetrics(idling)
	require.NoError(t, metrics.Register(prometheus.NewRegistry()))
	return NewReminderRepository(store, idling, metrics, logger.NewNop()), metrics
}

func TestReminderRepository_GetReminder(t *testing.T) {
	ctx := context.Background()
	repo, metrics := newRepository(t, repository.NewMemoryStore())

	r := &entities.Reminder{ID: "r-1", Title: entities.StringPtr("Title")}
	require.NoError(t, repo.SaveReminder(ctx, r))

	res := repo.GetReminder(ctx, "r-1")
	require.True(t, res.IsSuccess())
	got, _ := res.Data()
	assert.Equal(t, r, got)

	res = repo.GetReminder(ctx, "missing")
	require.False(t, res.IsSuccess())
	assert.Equal(t, "Reminder not found!", res.Err().Message)
	assert.Nil(t, res.Err().StatusCode)
	assert.ErrorIs(t, res.Err(), entities.ErrReminderNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpGetReminder, OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpGetReminder, OutcomeNotFound)))
	assert.True(t, repo.Idling().IsIdle())
}

func TestReminderRepository_GetRemindersEmpty(t *testing.T) {
	repo, _ := newRepository(t, repository.NewMemoryStore())

	res := repo.GetReminders(context.Background())

	require.True(t, res.IsSuccess())
	reminders, _ := res.Data()
	assert.Empty(t, reminders)
}

func TestReminderRepository_EndToEndOrder(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepository(t, repository.NewMemoryStore())

	for _, title := range []string{"A", "B", "C"} {
		require.NoError(t, repo.SaveReminder(ctx, &entities.Reminder{ID: "id-" + title, Title: entities.StringPtr(title)}))
	}
	require.NoError(t, repo.DeleteReminder(ctx, "id-B"))

	reminders, err := repo.GetReminders(ctx).Unwrap()
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, "A", entities.Deref(reminders[0].Title))
	assert.Equal(t, "C", entities.Deref(reminders[1].Title))

	require.NoError(t, repo.DeleteAllReminders(ctx))
	reminders, err = repo.GetReminders(ctx).Unwrap()
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestReminderRepository_StorageFailure(t *testing.T) {
	ctx := context.Background()
	idling := NewIdlingResource("reminders")
	store := &brokenStore{idling: idling}
	metrics := NewMetrics(idling)
	repo := NewReminderRepository(store, idling, metrics, logger.NewNop())

	list := repo.GetReminders(ctx)
	require.False(t, list.IsSuccess())
	assert.ErrorIs(t, list.Err(), entities.ErrStorageFailure)
	assert.Equal(t, "disk full", list.Err().Message)

	one := repo.GetReminder(ctx, "x")
	require.False(t, one.IsSuccess())
	assert.ErrorIs(t, one.Err(), entities.ErrStorageFailure)
	assert.NotErrorIs(t, one.Err(), entities.ErrReminderNotFound)

	err := repo.SaveReminder(ctx, &entities.Reminder{})
	assert.ErrorIs(t, err, entities.ErrStorageFailure)
	assert.ErrorIs(t, err, errDiskFull)

	assert.ErrorIs(t, repo.DeleteReminder(ctx, "x"), entities.ErrStorageFailure)
	assert.ErrorIs(t, repo.DeleteAllReminders(ctx), entities.ErrStorageFailure)

	assert.Equal(t, []int64{1, 1, 1, 1, 1}, store.observed, "busy while the store runs")
	assert.Zero(t, idling.Count(), "idle again after every failure")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpSaveReminder, OutcomeFailure)))
}

func TestReminderRepository_IdleCallbackAfterEachOperation(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepository(t, repository.NewMemoryStore())
	idle := 0
	repo.Idling().OnIdle(func() { idle++ })

	repo.SaveReminder(ctx, entities.NewReminder())
	repo.GetReminders(ctx)
	repo.GetReminder(ctx, "missing")

	assert.Equal(t, 3, idle)
}

func TestReminderRepository_WriteSurvivesCancelledContext(t *testing.T) {
	repo, _ := newRepository(t, repository.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, repo.SaveReminder(ctx, &entities.Reminder{ID: "late"}))

	assert.True(t, repo.GetReminder(context.Background(), "late").IsSuccess())
}

func TestReminderRepository_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	idling := NewIdlingResource("reminders")
	repo := NewReminderRepository(&brokenStore{idling: idling}, idling, nil, logger.NewNop())

	repo.GetReminder(context.Background(), "r-9")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "reminders."+OpGetReminder, spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestMetrics_Register(t *testing.T) {
	idling := NewIdlingResource("reminders")
	m := NewMetrics(idling)
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	idling.Increment()
	m.observeOperation(OpGetReminders, OutcomeSuccess, 0.01)
	m.incAuthAttempt(OutcomeFailure)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names[MetricRepositoryOperationsTotal])
	assert.True(t, names[MetricRepositoryDuration])
	assert.True(t, names[MetricRepositoryBusy])
	assert.True(t, names[MetricAuthAttemptsTotal])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busy))

	assert.Error(t, m.Register(reg), "double registration fails")
}
