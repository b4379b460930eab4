package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/repository"
)

// journalWriteTimeout — предел записи в журнал после завершения действия.
const journalWriteTimeout = 3 * time.Second

type actorKey struct{}

// WithActor кладёт имя администратора, выполняющего запрос, в контекст.
func WithActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, actorKey{}, username)
}

// ActorFromContext возвращает имя администратора из контекста.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// JournalService — журнал действий консоли.
// Без репозитория (PostgreSQL не настроен) записи только логируются.
// Ошибка записи никогда не влияет на результат действия.
type JournalService struct {
	repo   repository.ActionJournalRepository
	logger *slog.Logger
}

// NewJournalService создаёт журнал. repo может быть nil.
func NewJournalService(repo repository.ActionJournalRepository, logger *slog.Logger) *JournalService {
	return &JournalService{
		repo:   repo,
		logger: logger.With(slog.String("component", "action_journal")),
	}
}

// Enabled сообщает, сохраняются ли записи в PostgreSQL.
func (j *JournalService) Enabled() bool {
	return j != nil && j.repo != nil
}

// Record фиксирует попытку действия и её исход.
// Запись выполняется и после отмены контекста запроса.
func (j *JournalService) Record(ctx context.Context, entity string, entityID int64, action string, actionErr error) {
	if j == nil {
		return
	}

	entry := &model.JournalEntry{
		Actor:    ActorFromContext(ctx),
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Outcome:  outcomeOf(actionErr),
	}
	if actionErr != nil {
		if text, ok := NoticeText(actionErr); ok {
			entry.Message = text
		} else {
			entry.Message = actionErr.Error()
		}
	}

	j.logger.Info("Действие администратора",
		slog.String("actor", entry.Actor),
		slog.String("entity", entity),
		slog.Int64("entity_id", entityID),
		slog.String("action", action),
		slog.String("outcome", string(entry.Outcome)),
	)

	if j.repo == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
	defer cancel()
	if err := j.repo.Record(writeCtx, entry); err != nil {
		j.logger.Warn("Ошибка записи в журнал действий",
			slog.String("entity", entity),
			slog.Int64("entity_id", entityID),
			slog.String("error", err.Error()),
		)
	}
}

// Recent возвращает последние записи. Без репозитория — пустой список.
func (j *JournalService) Recent(ctx context.Context, limit int) ([]*model.JournalEntry, error) {
	if !j.Enabled() {
		return nil, nil
	}
	return j.repo.Recent(ctx, limit)
}

// ForEntity возвращает историю действий над одной сущностью.
func (j *JournalService) ForEntity(ctx context.Context, entity string, entityID int64, limit int) ([]*model.JournalEntry, error) {
	if !j.Enabled() {
		return nil, nil
	}
	return j.repo.ListByEntity(ctx, entity, entityID, limit)
}

// outcomeOf классифицирует результат: отказ консоли до сети или сбой backend.
func outcomeOf(err error) model.JournalOutcome {
	if err == nil {
		return model.OutcomeSuccess
	}
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		return model.OutcomeRejected
	}
	return model.OutcomeFailed
}
