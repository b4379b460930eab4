package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/krishibazar/admin-console/internal/domain/model"
)

// ActionJournalRepository — журнал действий консоли (таблица action_journal).
type ActionJournalRepository interface {
	// Record сохраняет запись. Пустой ID заполняется новым UUID.
	Record(ctx context.Context, e *model.JournalEntry) error
	// Recent возвращает последние записи, новые первыми.
	Recent(ctx context.Context, limit int) ([]*model.JournalEntry, error)
	// ListByEntity возвращает записи по одной сущности, новые первыми.
	ListByEntity(ctx context.Context, entity string, entityID int64, limit int) ([]*model.JournalEntry, error)
	// Get возвращает запись по ID.
	Get(ctx context.Context, id string) (*model.JournalEntry, error)
}

// actionJournalRepo — реализация ActionJournalRepository.
type actionJournalRepo struct {
	db DBTX
}

// NewActionJournalRepository создаёт репозиторий журнала действий.
func NewActionJournalRepository(db DBTX) ActionJournalRepository {
	return &actionJournalRepo{db: db}
}

const journalColumns = `id, actor, entity, entity_id, action, outcome, message, created_at`

func (r *actionJournalRepo) Record(ctx context.Context, e *model.JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query := `
		INSERT INTO action_journal (id, actor, entity, entity_id, action, outcome, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.Actor, e.Entity, e.EntityID, e.Action, string(e.Outcome), e.Message,
	).Scan(&e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка записи в журнал действий: %w", err)
	}
	return nil
}

func (r *actionJournalRepo) Recent(ctx context.Context, limit int) ([]*model.JournalEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM action_journal
		ORDER BY created_at DESC
		LIMIT $1`, journalColumns)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала действий: %w", err)
	}
	return scanJournal(rows)
}

func (r *actionJournalRepo) ListByEntity(ctx context.Context, entity string, entityID int64, limit int) ([]*model.JournalEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM action_journal
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3`, journalColumns)

	rows, err := r.db.Query(ctx, query, entity, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала по сущности: %w", err)
	}
	return scanJournal(rows)
}

func (r *actionJournalRepo) Get(ctx context.Context, id string) (*model.JournalEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM action_journal WHERE id = $1`, journalColumns)

	e, err := scanJournalRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи журнала: %w", err)
	}
	return e, nil
}

// scanJournal читает все строки выборки и закрывает rows.
func scanJournal(rows pgx.Rows) ([]*model.JournalEntry, error) {
	defer rows.Close()

	var result []*model.JournalEntry
	for rows.Next() {
		e, err := scanJournalRow(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanJournalRow(row pgx.Row) (*model.JournalEntry, error) {
	e := &model.JournalEntry{}
	var outcome string
	if err := row.Scan(
		&e.ID, &e.Actor, &e.Entity, &e.EntityID, &e.Action, &outcome, &e.Message, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.Outcome = model.JournalOutcome(outcome)
	return e, nil
}
