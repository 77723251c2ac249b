package ledger

import (
	"context"
	"fmt"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"gorm.io/gorm"
)

// MoveItem moves an unequipped item between the owner's backpack and stash.
// Moves into the backpack are capacity checked.
func (l *Ledger) MoveItem(ctx context.Context, owner string, id uint, from, to game.Container) error {
	if !from.Personal() || !to.Personal() || from == to {
		return ErrInvalidContainer
	}
	return l.transact(ctx, func(tx *gorm.DB) error {
		it, err := lockItem(tx, owner, id)
		if err != nil {
			return err
		}
		if it.Container != from {
			return fmt.Errorf("%w: item %d is in %s, not %s", game.ErrStateConflict, id, it.Container, from)
		}
		if it.Equipped {
			return ErrItemEquipped
		}
		res := tx.Model(&game.ItemInstance{}).
			Where("id = ? AND owner_id = ? AND container = ? AND equipped = ?", id, owner, from, false).
			Update("container", to)
		if err := checked(res, id); err != nil {
			return err
		}
		if to == game.ContainerBackpack {
			return l.validateCapacity(tx, owner)
		}
		return nil
	})
}

// SetEquipped equips or unequips a backpack item. Equipping first unequips
// whatever the owner had in the same slot.
func (l *Ledger) SetEquipped(ctx context.Context, owner string, id uint, equip bool) error {
	return l.transact(ctx, func(tx *gorm.DB) error {
		it, err := lockItem(tx, owner, id)
		if err != nil {
			return err
		}
		if it.Container != game.ContainerBackpack {
			return ErrNotInBackpack
		}
		def, err := l.catalog.Lookup(it.DefinitionID)
		if err != nil {
			return err
		}
		slot := def.Type.Slot()
		if slot == game.SlotNone {
			return ErrNotEquippable
		}

		if equip {
			var current []game.ItemInstance
			if err := locked(tx).
				Where("owner_id = ? AND container = ? AND equipped = ? AND id <> ?", owner, game.ContainerBackpack, true, id).
				Find(&current).Error; err != nil {
				return err
			}
			for _, other := range current {
				od, err := l.catalog.Lookup(other.DefinitionID)
				if err != nil {
					return err
				}
				if od.Type.Slot() != slot {
					continue
				}
				res := tx.Model(&game.ItemInstance{}).
					Where("id = ? AND equipped = ?", other.ID, true).
					Update("equipped", false)
				if err := checked(res, other.ID); err != nil {
					return err
				}
			}
		}

		res := tx.Model(&game.ItemInstance{}).
			Where("id = ? AND owner_id = ? AND container = ? AND equipped = ?", id, owner, game.ContainerBackpack, !equip).
			Update("equipped", equip)
		if err := checked(res, id); err != nil {
			return err
		}
		return l.validateCapacity(tx, owner)
	})
}

// ConsumeDurability removes amount uses from a backpack item and deletes
// it once nothing is left. Items without durability are left untouched.
func (l *Ledger) ConsumeDurability(ctx context.Context, owner string, id uint, amount int) (remaining int, destroyed bool, err error) {
	err = l.transact(ctx, func(tx *gorm.DB) error {
		it, err := lockBackpackItem(tx, owner, id)
		if err != nil {
			return err
		}
		def, err := l.catalog.Lookup(it.DefinitionID)
		if err != nil {
			return err
		}
		if !def.HasDurability() {
			remaining, destroyed = 0, false
			return nil
		}
		current := def.DurabilityMax
		if it.DurabilityRemaining != nil {
			current = *it.DurabilityRemaining
		}
		remaining = current - amount
		if remaining <= 0 {
			remaining, destroyed = 0, true
			return deleteItem(tx, it)
		}
		q := tx.Model(&game.ItemInstance{}).Where("id = ? AND owner_id = ? AND container = ?", id, owner, game.ContainerBackpack)
		if it.DurabilityRemaining == nil {
			q = q.Where("durability_remaining IS NULL")
		} else {
			q = q.Where("durability_remaining = ?", current)
		}
		return checked(q.Update("durability_remaining", remaining), id)
	})
	if err != nil {
		return 0, false, err
	}
	return remaining, destroyed, nil
}

// Consume deletes a single-use backpack item such as a round of ammunition
// or a thrown weapon.
func (l *Ledger) Consume(ctx context.Context, owner string, id uint) error {
	return l.transact(ctx, func(tx *gorm.DB) error {
		it, err := lockBackpackItem(tx, owner, id)
		if err != nil {
			return err
		}
		return deleteItem(tx, it)
	})
}

// Sell deletes an unequipped item from the backpack or stash and credits
// its sell price to the owner's balance. It returns the amount credited.
func (l *Ledger) Sell(ctx context.Context, owner string, id uint) (int, error) {
	var price int
	err := l.transact(ctx, func(tx *gorm.DB) error {
		it, err := lockItem(tx, owner, id)
		if err != nil {
			return err
		}
		if it.Container != game.ContainerBackpack && it.Container != game.ContainerStash {
			return ErrNotSellable
		}
		if it.Equipped {
			return ErrItemEquipped
		}
		def, err := l.catalog.Lookup(it.DefinitionID)
		if err != nil {
			return err
		}
		var acct game.Account
		if err := locked(tx).Where("user_id = ?", owner).First(&acct).Error; err != nil {
			return err
		}
		if err := deleteItem(tx, it); err != nil {
			return err
		}
		price = def.SellPrice
		return tx.Model(&game.Account{}).
			Where("user_id = ?", owner).
			Update("balance", gorm.Expr("balance + ?", price)).Error
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

// Grant creates a new instance of definition for owner in container, at
// full durability. Grants into the backpack are capacity checked.
func (l *Ledger) Grant(ctx context.Context, owner, definitionID string, container game.Container) (*game.ItemInstance, error) {
	if !container.Valid() {
		return nil, ErrInvalidContainer
	}
	def, err := l.catalog.Lookup(definitionID)
	if err != nil {
		return nil, err
	}
	var it *game.ItemInstance
	err = l.transact(ctx, func(tx *gorm.DB) error {
		it, err = l.create(tx, owner, def, container)
		return err
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (l *Ledger) create(tx *gorm.DB, owner string, def *game.ItemDefinition, container game.Container) (*game.ItemInstance, error) {
	it := &game.ItemInstance{DefinitionID: def.ID, OwnerID: owner, Container: container}
	if def.HasDurability() {
		d := def.DurabilityMax
		it.DurabilityRemaining = &d
	}
	if err := tx.Create(it).Error; err != nil {
		return nil, err
	}
	if container == game.ContainerBackpack {
		if err := l.validateCapacity(tx, owner); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// Buy purchases one instance of definition from the shop, debiting its buy
// price from the owner's balance. An empty container puts the item in the
// backpack when it fits and in the stash otherwise.
func (l *Ledger) Buy(ctx context.Context, owner, definitionID string, container game.Container) (*game.ItemInstance, error) {
	def, err := l.catalog.Lookup(definitionID)
	if err != nil {
		return nil, err
	}
	if def.BuyPrice <= 0 {
		return nil, ErrNotForSale
	}
	if container == "" {
		fits, err := l.HasCapacity(ctx, owner, def.SlotsUsed)
		if err != nil {
			return nil, err
		}
		container = game.ContainerStash
		if fits {
			container = game.ContainerBackpack
		}
	}
	if !container.Personal() {
		return nil, ErrInvalidContainer
	}

	var it *game.ItemInstance
	err = l.transact(ctx, func(tx *gorm.DB) error {
		var acct game.Account
		if err := locked(tx).Where("user_id = ?", owner).First(&acct).Error; err != nil {
			return err
		}
		res := tx.Model(&game.Account{}).
			Where("user_id = ? AND balance >= ?", owner, def.BuyPrice).
			Update("balance", gorm.Expr("balance - ?", def.BuyPrice))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: %d < %d", ErrInsufficientFunds, acct.Balance, def.BuyPrice)
		}
		it, err = l.create(tx, owner, def, container)
		return err
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// DropToGround moves everything in the owner's backpack, equipped items
// included, to the ground container and returns the dropped instances.
func (l *Ledger) DropToGround(ctx context.Context, owner string) ([]game.ItemInstance, error) {
	var items []game.ItemInstance
	err := l.transact(ctx, func(tx *gorm.DB) error {
		if err := locked(tx).
			Where("owner_id = ? AND container = ?", owner, game.ContainerBackpack).
			Order("id asc").
			Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		ids := make([]uint, len(items))
		for i := range items {
			ids[i] = items[i].ID
		}
		res := tx.Model(&game.ItemInstance{}).
			Where("id IN ? AND owner_id = ? AND container = ?", ids, owner, game.ContainerBackpack).
			Updates(map[string]interface{}{"container": game.ContainerGround, "equipped": false})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return fmt.Errorf("%w: backpack of %s changed while dropping", game.ErrStateConflict, owner)
		}
		for i := range items {
			items[i].Container = game.ContainerGround
			items[i].Equipped = false
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DistributeLoot settles a loot pool dropped by loser. Selected items move
// to the winner's backpack without a capacity check; the rest of the pool is
// deleted. Pool items that are no longer on the ground are skipped. It
// returns the ids that were transferred.
func (l *Ledger) DistributeLoot(ctx context.Context, loser, winner string, pool, selected []uint) ([]uint, error) {
	if len(pool) == 0 {
		return nil, nil
	}
	want := make(map[uint]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	var transferred []uint
	err := l.transact(ctx, func(tx *gorm.DB) error {
		transferred = transferred[:0]
		var items []game.ItemInstance
		if err := locked(tx).
			Where("id IN ? AND owner_id = ? AND container = ?", pool, loser, game.ContainerGround).
			Order("id asc").
			Find(&items).Error; err != nil {
			return err
		}
		for i := range items {
			it := &items[i]
			if !want[it.ID] {
				if err := deleteItem(tx, it); err != nil {
					return err
				}
				continue
			}
			res := tx.Model(&game.ItemInstance{}).
				Where("id = ? AND owner_id = ? AND container = ?", it.ID, loser, game.ContainerGround).
				Updates(map[string]interface{}{"owner_id": winner, "container": game.ContainerBackpack, "equipped": false})
			if err := checked(res, it.ID); err != nil {
				return err
			}
			transferred = append(transferred, it.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transferred, nil
}
