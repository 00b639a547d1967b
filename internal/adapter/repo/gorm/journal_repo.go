package gormrepo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatcraft/internal/app/ports"
)

type journalRow struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	TriggerKind string    `gorm:"column:trigger_kind"`
	Trigger     string    `gorm:"column:trigger"`
	UserID      string    `gorm:"column:user_id"`
	UserName    string    `gorm:"column:user_name"`
	Outcome     string    `gorm:"column:outcome"`
	Detail      string    `gorm:"column:detail"`
	OccurredAt  time.Time `gorm:"column:occurred_at"`
}

func (journalRow) TableName() string { return "dispatch_journal" }

type JournalRepo struct {
	db *gorm.DB
}

func NewJournalRepo(db *gorm.DB) JournalRepo {
	return JournalRepo{db: db}
}

func (r JournalRepo) Append(ctx context.Context, entry ports.JournalEntry) error {
	row := journalRow{
		TriggerKind: entry.TriggerKind,
		Trigger:     entry.Trigger,
		UserID:      entry.UserID,
		UserName:    entry.UserName,
		Outcome:     entry.Outcome,
		Detail:      entry.Detail,
		OccurredAt:  entry.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r JournalRepo) ListRecent(ctx context.Context, limit int) ([]ports.JournalEntry, error) {
	rows := []journalRow{}
	query := r.db.WithContext(ctx).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "occurred_at"}, Desc: true}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]ports.JournalEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.JournalEntry{
			TriggerKind: row.TriggerKind,
			Trigger:     row.Trigger,
			UserID:      row.UserID,
			UserName:    row.UserName,
			Outcome:     row.Outcome,
			Detail:      row.Detail,
			OccurredAt:  row.OccurredAt,
		})
	}
	return out, nil
}
