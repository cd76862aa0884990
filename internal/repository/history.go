package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"foldersync/internal/model"

	"gorm.io/gorm"
)

type HistoryRepository struct {
	db      *gorm.DB
	src     string
	replica string
}

func NewHistoryRepository(db *gorm.DB, src, replica string) *HistoryRepository {
	return &HistoryRepository{db: db, src: src, replica: replica}
}

// Save stores a tick and its actions in one transaction.
func (r *HistoryRepository) Save(ctx context.Context, result model.TickResult) error {
	status := model.StatusSuccess
	errMsg := ""
	if result.Err != nil {
		status = model.StatusFailed
		errMsg = result.Err.Error()
	}

	tick := model.Tick{
		TickID:     result.ID,
		Status:     status,
		Copied:     result.Count(model.ActionCopied),
		Removed:    result.Count(model.ActionRemoved),
		Bytes:      result.BytesCopied(),
		ErrMsg:     errMsg,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tick).Error; err != nil {
			return fmt.Errorf("create tick record: %w", err)
		}

		if len(result.Actions) == 0 {
			return nil
		}

		histories := make([]model.History, 0, len(result.Actions))
		for _, a := range result.Actions {
			h := model.History{
				TickID:   result.ID,
				Action:   a.Type,
				Name:     a.Name,
				DstPath:  filepath.Join(r.replica, a.Name),
				Size:     a.Size,
				SyncedAt: result.FinishedAt,
			}
			if a.Type == model.ActionCopied {
				h.SrcPath = filepath.Join(r.src, a.Name)
			}
			histories = append(histories, h)
		}

		if err := tx.Create(&histories).Error; err != nil {
			return fmt.Errorf("create history records: %w", err)
		}

		return nil
	})
}

type Stats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := r.db.Model(&model.Tick{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := r.db.Model(&model.Tick{}).
		Where("status = ?", model.StatusSuccess).
		Count(&stats.Success).Error; err != nil {
		return stats, err
	}

	stats.Failed = stats.Total - stats.Success
	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.Tick, error) {
	var ticks []model.Tick
	result := r.db.
		Order("finished_at desc, id desc").
		Limit(limit).
		Find(&ticks)

	return ticks, result.Error
}

func (r *HistoryRepository) GetFailed(limit int) ([]model.Tick, error) {
	var ticks []model.Tick
	result := r.db.
		Where("status = ?", model.StatusFailed).
		Order("finished_at desc, id desc").
		Limit(limit).
		Find(&ticks)

	return ticks, result.Error
}

func (r *HistoryRepository) GetActions(tickID string) ([]model.History, error) {
	var histories []model.History
	result := r.db.
		Where("tick_id = ?", tickID).
		Order("id asc").
		Find(&histories)

	return histories, result.Error
}

// Prune deletes ticks and actions older than the cutoff.
func (r *HistoryRepository) Prune(before time.Time) (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Where("finished_at < ?", before).Delete(&model.Tick{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		return tx.Unscoped().Where("synced_at < ?", before).Delete(&model.History{}).Error
	})

	return removed, err
}
