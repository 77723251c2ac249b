// Package ledger moves, equips and consumes item instances. Every operation
// runs in a single transaction that locks the rows it touches before
// mutating them, and every write is conditional on the state that was read,
// so two racing callers on one item id cannot both succeed.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrTransaction wraps lock or commit failures of the underlying store.
	ErrTransaction       = errors.New("ledger transaction failed")
	ErrCapacityExceeded  = errors.New("backpack capacity exceeded")
	ErrItemEquipped      = errors.New("item is equipped")
	ErrNotEquippable     = errors.New("item cannot be equipped")
	ErrNotInBackpack     = errors.New("item is not in the backpack")
	ErrInvalidContainer  = errors.New("invalid container")
	ErrNotSellable       = errors.New("item cannot be sold")
	ErrNotForSale        = errors.New("item is not sold in the shop")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// domain errors pass through transact untouched; everything else is a
// store failure.
var domainErrors = []error{
	game.ErrStateConflict,
	game.ErrUnknownDefinition,
	ErrCapacityExceeded,
	ErrItemEquipped,
	ErrNotEquippable,
	ErrNotInBackpack,
	ErrInvalidContainer,
	ErrNotSellable,
	ErrNotForSale,
	ErrInsufficientFunds,
}

// Ledger is the transactional item store.
type Ledger struct {
	db        *gorm.DB
	catalog   *game.Catalog
	baseSlots int
}

// New returns a Ledger over db. baseSlots is the backpack capacity before
// any equipped backpack bonus.
func New(db *gorm.DB, catalog *game.Catalog, baseSlots int) *Ledger {
	return &Ledger{db: db, catalog: catalog, baseSlots: baseSlots}
}

// Catalog returns the definitions the ledger resolves instances against.
func (l *Ledger) Catalog() *game.Catalog { return l.catalog }

func (l *Ledger) transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := l.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	for _, de := range domainErrors {
		if errors.Is(err, de) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTransaction, err)
	}
	return fmt.Errorf("%w: %v", ErrTransaction, err)
}

func locked(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockItem locks the instance owned by owner. A missing row means another
// operation consumed or transferred it first.
func lockItem(tx *gorm.DB, owner string, id uint) (*game.ItemInstance, error) {
	var it game.ItemInstance
	err := locked(tx).Where("id = ? AND owner_id = ?", id, owner).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: item %d", game.ErrStateConflict, id)
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// lockBackpackItem is lockItem for operations that only apply to items the
// owner is carrying.
func lockBackpackItem(tx *gorm.DB, owner string, id uint) (*game.ItemInstance, error) {
	it, err := lockItem(tx, owner, id)
	if err != nil {
		return nil, err
	}
	if it.Container != game.ContainerBackpack {
		return nil, fmt.Errorf("%w: item %d is in %s", game.ErrStateConflict, id, it.Container)
	}
	return it, nil
}

// checked turns a conditional write that matched no row into a conflict.
func checked(res *gorm.DB, id uint) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: item %d", game.ErrStateConflict, id)
	}
	return nil
}

func deleteItem(tx *gorm.DB, it *game.ItemInstance) error {
	res := tx.Unscoped().
		Where("id = ? AND owner_id = ? AND container = ?", it.ID, it.OwnerID, it.Container).
		Delete(&game.ItemInstance{})
	return checked(res, it.ID)
}

// Item returns an instance owned by owner together with its definition.
func (l *Ledger) Item(ctx context.Context, owner string, id uint) (*game.ItemInstance, *game.ItemDefinition, error) {
	var it game.ItemInstance
	err := l.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: item %d", game.ErrStateConflict, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTransaction, err)
	}
	def, err := l.catalog.Lookup(it.DefinitionID)
	if err != nil {
		return nil, nil, err
	}
	return &it, def, nil
}

// List returns the owner's instances in container, oldest first.
func (l *Ledger) List(ctx context.Context, owner string, container game.Container) ([]game.ItemInstance, error) {
	if !container.Valid() {
		return nil, ErrInvalidContainer
	}
	var items []game.ItemInstance
	if err := l.db.WithContext(ctx).
		Where("owner_id = ? AND container = ?", owner, container).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransaction, err)
	}
	return items, nil
}

// Loadout returns the owner's equipped items keyed by slot.
func (l *Ledger) Loadout(ctx context.Context, owner string) (game.Loadout, error) {
	var items []game.ItemInstance
	if err := l.db.WithContext(ctx).
		Where("owner_id = ? AND container = ? AND equipped = ?", owner, game.ContainerBackpack, true).
		Find(&items).Error; err != nil {
		return game.Loadout{}, fmt.Errorf("%w: %v", ErrTransaction, err)
	}
	var lo game.Loadout
	for _, it := range items {
		def, err := l.catalog.Lookup(it.DefinitionID)
		if err != nil {
			return game.Loadout{}, err
		}
		eq := &game.EquippedItem{Instance: it, Definition: def}
		switch def.Type.Slot() {
		case game.SlotWeapon:
			lo.Weapon = eq
		case game.SlotBodyArmor:
			lo.Armor = eq
		case game.SlotHelmet:
			lo.Helmet = eq
		case game.SlotBackpack:
			lo.Backpack = eq
		case game.SlotNone:
		}
	}
	return lo, nil
}
