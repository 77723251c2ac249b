package ledger

import (
	"context"
	"fmt"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"gorm.io/gorm"
)

// Capacity is the owner's backpack usage. Equipped items do not count
// against Used; an equipped backpack raises Limit by its bonus slots.
type Capacity struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// Free returns the remaining slots, which is negative when over capacity.
func (c Capacity) Free() int { return c.Limit - c.Used }

// capacity locks the owner's backpack rows and sums their slot usage.
func (l *Ledger) capacity(tx *gorm.DB, owner string) (Capacity, error) {
	var items []game.ItemInstance
	if err := locked(tx).
		Where("owner_id = ? AND container = ?", owner, game.ContainerBackpack).
		Find(&items).Error; err != nil {
		return Capacity{}, err
	}
	c := Capacity{Limit: l.baseSlots}
	for _, it := range items {
		def, err := l.catalog.Lookup(it.DefinitionID)
		if err != nil {
			return Capacity{}, err
		}
		if it.Equipped {
			if def.Type.Slot() == game.SlotBackpack {
				c.Limit += def.BonusSlots
			}
			continue
		}
		c.Used += def.SlotsUsed
	}
	return c, nil
}

// validateCapacity runs after a mutation inside the same transaction so a
// violating change rolls back with it.
func (l *Ledger) validateCapacity(tx *gorm.DB, owner string) error {
	c, err := l.capacity(tx, owner)
	if err != nil {
		return err
	}
	if c.Used > c.Limit {
		return fmt.Errorf("%w: %d/%d slots", ErrCapacityExceeded, c.Used, c.Limit)
	}
	return nil
}

// Capacity reports the owner's current backpack usage.
func (l *Ledger) Capacity(ctx context.Context, owner string) (Capacity, error) {
	var c Capacity
	err := l.transact(ctx, func(tx *gorm.DB) error {
		var err error
		c, err = l.capacity(tx, owner)
		return err
	})
	return c, err
}

// HasCapacity reports whether slotsNeeded more slots fit in the backpack.
func (l *Ledger) HasCapacity(ctx context.Context, owner string, slotsNeeded int) (bool, error) {
	c, err := l.Capacity(ctx, owner)
	if err != nil {
		return false, err
	}
	return c.Used+slotsNeeded <= c.Limit, nil
}
