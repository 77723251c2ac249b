package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
)

type catalogFile struct {
	Items []game.ItemDefinition `yaml:"items"`
}

// LoadCatalog reads the item catalog at path. Every definition is validated
// and ids must be unique across the file.
func LoadCatalog(path string) (*game.Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	defs, err := parseCatalog(b)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return game.NewCatalog(defs), nil
}

func parseCatalog(b []byte) ([]game.ItemDefinition, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, errors.New("items is empty")
	}
	seen := make(map[string]bool, len(f.Items))
	var errs []error
	for i := range f.Items {
		d := &f.Items[i]
		if err := validateDefinition(d); err != nil {
			errs = append(errs, fmt.Errorf("item %d (%q): %w", i, d.ID, err))
			continue
		}
		if seen[d.ID] {
			errs = append(errs, fmt.Errorf("item %d: duplicate id %q", i, d.ID))
		}
		seen[d.ID] = true
	}
	return f.Items, errors.Join(errs...)
}

func validateDefinition(d *game.ItemDefinition) error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("missing id"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("missing name"))
	}
	if !d.Type.Valid() {
		errs = append(errs, fmt.Errorf("type %q is not a valid item type", d.Type))
	}
	if d.SlotsUsed < 0 || d.DurabilityMax < 0 || d.SellPrice < 0 || d.BuyPrice < 0 || d.BonusSlots < 0 || d.Heal < 0 {
		errs = append(errs, errors.New("slots_used, durability, prices, bonus_slots and heal must not be negative"))
	}
	if d.Accuracy < 0 || d.Accuracy > 100 {
		errs = append(errs, fmt.Errorf("accuracy %d must be within 0..100", d.Accuracy))
	}
	if d.LimbSpreadCount < 0 || d.LimbSpreadCount > len(game.AllLimbs) {
		errs = append(errs, fmt.Errorf("limb_spread %d must be within 0..%d", d.LimbSpreadCount, len(game.AllLimbs)))
	}

	switch d.Type {
	case game.ItemAmmunition, game.ItemMeleeWeapon, game.ItemThrowableWeapon:
		if d.Damage <= 0 {
			errs = append(errs, fmt.Errorf("%s needs a positive damage", d.Type))
		}
		if d.Penetration < 0 {
			errs = append(errs, errors.New("penetration must not be negative"))
		}
	case game.ItemBodyArmor, game.ItemHelmet:
		if d.ArmorLevel <= 0 {
			errs = append(errs, fmt.Errorf("%s needs a positive armor_level", d.Type))
		}
	case game.ItemRangedWeapon, game.ItemMedical, game.ItemStimulant, game.ItemBackpack, game.ItemOther:
	}
	if d.LimbSpreadCount > 1 && d.Type != game.ItemAmmunition {
		errs = append(errs, errors.New("limb_spread is only valid on ammunition"))
	}
	if d.BonusSlots > 0 && d.Type != game.ItemBackpack {
		errs = append(errs, errors.New("bonus_slots is only valid on backpacks"))
	}

	for _, a := range d.Afflictions {
		if !a.Valid() {
			errs = append(errs, fmt.Errorf("unknown affliction %q", a))
		}
	}
	for _, a := range d.Cures {
		if !a.Valid() {
			errs = append(errs, fmt.Errorf("unknown cure %q", a))
		}
	}
	return errors.Join(errs...)
}
