package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/infrastructure/database"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

const reminderColumns = `id, title, description, location, latitude, longitude, radius`

// SQLStore implements ReminderStore on top of PostgreSQL or SQLite.
// Queries are written with ? placeholders and rebound for the driver.
type SQLStore struct {
	db     *database.DB
	logger *logger.Logger
}

// NewSQLStore creates a SQL-backed reminder store. The schema must already
// be migrated.
func NewSQLStore(db *database.DB, log *logger.Logger) ports.ReminderStore {
	return &SQLStore{db: db, logger: log.WithComponent("sql_store")}
}

// Save upserts the reminder. A new row takes the next position from the
// reminder_positions counter; the counter row lock serializes concurrent
// first inserts. An existing row keeps its position.
func (s *SQLStore) Save(ctx context.Context, reminder *entities.Reminder) error {
	reminder.EnsureID()

	nextPosition := `UPDATE reminder_positions SET last_position = last_position + 1 WHERE id = 1 RETURNING last_position`
	upsert := s.db.DB.Rebind(`
		INSERT INTO reminders (id, title, description, location, latitude, longitude, radius, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET title = excluded.title, description = excluded.description, location = excluded.location,
			latitude = excluded.latitude, longitude = excluded.longitude, radius = excluded.radius,
			updated_at = CURRENT_TIMESTAMP`)

	err := s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var position int64
		start := time.Now()
		err := tx.GetContext(ctx, &position, nextPosition)
		s.logQuery(nextPosition, start, err)
		if err != nil {
			return err
		}

		start = time.Now()
		_, err = tx.ExecContext(ctx, upsert,
			reminder.ID, reminder.Title, reminder.Description, reminder.LocationName,
			reminder.Latitude, reminder.Longitude, reminder.RadiusMeters, position,
		)
		s.logQuery(upsert, start, err)
		return err
	})
	if err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}

	return nil
}

func (s *SQLStore) GetAll(ctx context.Context) ([]*entities.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders ORDER BY position, created_at`

	reminders := []*entities.Reminder{}
	start := time.Now()
	err := s.db.DB.SelectContext(ctx, &reminders, query)
	s.logQuery(query, start, err)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	return reminders, nil
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (*entities.Reminder, error) {
	query := s.db.DB.Rebind(`SELECT ` + reminderColumns + ` FROM reminders WHERE id = ?`)

	var reminder entities.Reminder
	start := time.Now()
	err := s.db.DB.GetContext(ctx, &reminder, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		s.logQuery(query, start, nil)
		return nil, entities.ErrReminderNotFound
	}
	s.logQuery(query, start, err)
	if err != nil {
		return nil, fmt.Errorf("get reminder by id: %w", err)
	}

	return &reminder, nil
}

func (s *SQLStore) DeleteByID(ctx context.Context, id string) error {
	query := s.db.DB.Rebind(`DELETE FROM reminders WHERE id = ?`)

	start := time.Now()
	_, err := s.db.DB.ExecContext(ctx, query, id)
	s.logQuery(query, start, err)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	return nil
}

func (s *SQLStore) DeleteAll(ctx context.Context) error {
	query := `DELETE FROM reminders`

	start := time.Now()
	_, err := s.db.DB.ExecContext(ctx, query)
	s.logQuery(query, start, err)
	if err != nil {
		return fmt.Errorf("delete all reminders: %w", err)
	}

	return nil
}

func (s *SQLStore) logQuery(query string, start time.Time, err error) {
	s.logger.LogDatabaseQuery(query, float64(time.Since(start).Microseconds())/1000, err)
}
