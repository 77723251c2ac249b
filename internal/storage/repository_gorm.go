package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a Repository backed by db (sqlite or postgres).
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetAccount(ctx context.Context, userID string) (*game.Account, error) {
	var a game.Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) EnsureAccount(ctx context.Context, userID, name string, healthMax int) (*game.Account, error) {
	a := game.Account{UserID: userID, Name: name, HealthCurrent: healthMax, HealthMax: healthMax}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&a).Error
	if err != nil {
		return nil, err
	}
	return r.GetAccount(ctx, userID)
}

// lockAccounts locks the given accounts in user id order so two sessions
// touching the same pair cannot deadlock.
func lockAccounts(tx *gorm.DB, userIDs ...string) (map[string]*game.Account, error) {
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)
	out := make(map[string]*game.Account, len(ids))
	for _, id := range ids {
		var a game.Account
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", id).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &MissingAccountError{UserID: id}
		}
		if err != nil {
			return nil, err
		}
		out[id] = &a
	}
	return out, nil
}

func (r *gormRepository) BeginCombat(ctx context.Context, rec *game.DuelRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts, err := lockAccounts(tx, rec.ParticipantA, rec.ParticipantB)
		if err != nil {
			return err
		}
		for _, id := range []string{rec.ParticipantA, rec.ParticipantB} {
			if accounts[id].InCombat {
				return &BusyError{UserID: id}
			}
			res := tx.Model(&game.Account{}).
				Where("user_id = ? AND in_combat = ?", id, false).
				Updates(map[string]interface{}{"in_combat": true, "combat_session_id": rec.ID})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return &BusyError{UserID: id}
			}
		}
		return tx.Create(rec).Error
	})
}

func (r *gormRepository) EndCombat(ctx context.Context, rec *game.DuelRecord, health map[string]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts, err := lockAccounts(tx, rec.ParticipantA, rec.ParticipantB)
		if err != nil {
			return err
		}
		for userID, hp := range health {
			a, ok := accounts[userID]
			if !ok || a.CombatSessionID != rec.ID {
				continue
			}
			if hp > a.HealthMax {
				hp = a.HealthMax
			}
			if hp < 0 {
				hp = 0
			}
			if err := tx.Model(&game.Account{}).
				Where("user_id = ? AND combat_session_id = ?", userID, rec.ID).
				Update("health_current", hp).Error; err != nil {
				return err
			}
		}
		if err := clearFlags(tx, rec.ID, rec.ParticipantA, rec.ParticipantB); err != nil {
			return err
		}
		if rec.EndedAt == nil {
			now := time.Now().UTC()
			rec.EndedAt = &now
		}
		rec.Status = game.StatusCompleted
		return tx.Save(rec).Error
	})
}

func (r *gormRepository) ReleaseCombat(ctx context.Context, sessionID string, userIDs ...string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return clearFlags(tx, sessionID, userIDs...)
	})
}

func clearFlags(tx *gorm.DB, sessionID string, userIDs ...string) error {
	return tx.Model(&game.Account{}).
		Where("user_id IN ? AND combat_session_id = ?", userIDs, sessionID).
		Updates(map[string]interface{}{"in_combat": false, "combat_session_id": ""}).Error
}

func (r *gormRepository) UpdateDuelRecord(ctx context.Context, rec *game.DuelRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *gormRepository) GetDuelRecord(ctx context.Context, id string) (*game.DuelRecord, error) {
	var rec game.DuelRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDuelNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) FindOrphanedDuels(ctx context.Context, before time.Time) ([]game.DuelRecord, error) {
	var recs []game.DuelRecord
	if err := r.db.WithContext(ctx).
		Where("status <> ? AND updated_at < ?", game.StatusCompleted, before).
		Order("created_at asc").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
