package model

import "time"

// JournalOutcome — исход действия, записанного в журнал.
type JournalOutcome string

const (
	// OutcomeSuccess — backend принял действие.
	OutcomeSuccess JournalOutcome = "success"
	// OutcomeRejected — действие отклонено консолью до обращения к backend
	// (недопустимый переход или пустой обязательный ввод).
	OutcomeRejected JournalOutcome = "rejected"
	// OutcomeFailed — backend вернул ошибку или был недоступен.
	OutcomeFailed JournalOutcome = "failed"
)

// Сущности журнала действий.
const (
	JournalEntityProject    = "project"
	JournalEntityInvestment = "investment"
)

// JournalEntry — запись журнала действий консоли.
type JournalEntry struct {
	ID        string
	Actor     string
	Entity    string
	EntityID  int64
	Action    string
	Outcome   JournalOutcome
	Message   string
	CreatedAt time.Time
}
