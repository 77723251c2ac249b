package game

import "fmt"

// ItemType is the closed set of item categories. Engine and ledger code
// dispatch on it with exhaustive switches; adding a type means visiting
// every switch that dispatches on ItemType.
type ItemType string

const (
	ItemRangedWeapon    ItemType = "ranged_weapon"
	ItemMeleeWeapon     ItemType = "melee_weapon"
	ItemThrowableWeapon ItemType = "throwable_weapon"
	ItemAmmunition      ItemType = "ammunition"
	ItemHelmet          ItemType = "helmet"
	ItemBodyArmor       ItemType = "body_armor"
	ItemMedical         ItemType = "medical"
	ItemStimulant       ItemType = "stimulant"
	ItemBackpack        ItemType = "backpack"
	ItemOther           ItemType = "other"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemRangedWeapon, ItemMeleeWeapon, ItemThrowableWeapon, ItemAmmunition,
		ItemHelmet, ItemBodyArmor, ItemMedical, ItemStimulant, ItemBackpack, ItemOther:
		return true
	}
	return false
}

// IsWeapon reports whether an item of this type can back an Attack action.
func (t ItemType) IsWeapon() bool {
	switch t {
	case ItemRangedWeapon, ItemMeleeWeapon, ItemThrowableWeapon:
		return true
	case ItemAmmunition, ItemHelmet, ItemBodyArmor, ItemMedical, ItemStimulant, ItemBackpack, ItemOther:
		return false
	}
	return false
}

// EquipSlot identifies a wearable slot. Each owner has at most one equipped
// instance per slot.
type EquipSlot string

const (
	SlotNone      EquipSlot = ""
	SlotWeapon    EquipSlot = "weapon"
	SlotBodyArmor EquipSlot = "body_armor"
	SlotHelmet    EquipSlot = "helmet"
	SlotBackpack  EquipSlot = "backpack"
)

// Slot returns the equip slot used by items of this type, or SlotNone when
// the type cannot be equipped.
func (t ItemType) Slot() EquipSlot {
	switch t {
	case ItemRangedWeapon, ItemMeleeWeapon:
		return SlotWeapon
	case ItemBodyArmor:
		return SlotBodyArmor
	case ItemHelmet:
		return SlotHelmet
	case ItemBackpack:
		return SlotBackpack
	case ItemThrowableWeapon, ItemAmmunition, ItemMedical, ItemStimulant, ItemOther:
		return SlotNone
	}
	return SlotNone
}

// Container is the logical place an item instance lives in.
type Container string

const (
	ContainerBackpack Container = "backpack"
	ContainerStash    Container = "stash"
	ContainerGround   Container = "ground"
	ContainerShop     Container = "shop"
)

// Valid reports whether c is a known container.
func (c Container) Valid() bool {
	switch c {
	case ContainerBackpack, ContainerStash, ContainerGround, ContainerShop:
		return true
	}
	return false
}

// Personal reports whether the owner may move items in and out of c. Ground
// items belong to an open loot pool and shop items to the vendor.
func (c Container) Personal() bool {
	return c == ContainerBackpack || c == ContainerStash
}

// StimulantEffect is the duel-scoped buff granted while a stimulant is active.
type StimulantEffect struct {
	AccuracyBonus      int `yaml:"accuracy_bonus" json:"accuracy_bonus"`
	DamageBonusPercent int `yaml:"damage_bonus_percent" json:"damage_bonus_percent"`
	SpeedBonus         int `yaml:"speed_bonus" json:"speed_bonus"`
}

// ItemDefinition is a static catalog entry. Instances reference it through
// DefinitionID; the catalog file is the source of truth for every stat.
type ItemDefinition struct {
	ID              string           `yaml:"id" json:"id"`
	Name            string           `yaml:"name" json:"name"`
	Type            ItemType         `yaml:"type" json:"type"`
	Damage          float64          `yaml:"damage" json:"damage"`
	Penetration     float64          `yaml:"penetration" json:"penetration"`
	Accuracy        int              `yaml:"accuracy" json:"accuracy"`
	Speed           int              `yaml:"speed" json:"speed"`
	SlotsUsed       int              `yaml:"slots_used" json:"slots_used"`
	ArmorLevel      float64          `yaml:"armor_level" json:"armor_level"`
	DurabilityMax   int              `yaml:"durability" json:"durability"`
	LimbSpreadCount int              `yaml:"limb_spread" json:"limb_spread"`
	Afflictions     []AfflictionKind `yaml:"afflictions" json:"afflictions,omitempty"`
	BonusSlots      int              `yaml:"bonus_slots" json:"bonus_slots,omitempty"`
	Heal            int              `yaml:"heal" json:"heal,omitempty"`
	Cures           []AfflictionKind `yaml:"cures" json:"cures,omitempty"`
	Stimulant       StimulantEffect  `yaml:"stimulant" json:"stimulant"`
	SellPrice       int              `yaml:"sell_price" json:"sell_price"`
	// BuyPrice is what the shop charges; zero means the shop does not stock it.
	BuyPrice int `yaml:"buy_price" json:"buy_price,omitempty"`
}

// HasDurability reports whether instances of this definition wear out.
func (d *ItemDefinition) HasDurability() bool { return d.DurabilityMax > 0 }

// AppliesAffliction reports whether hits with this item apply the affliction.
func (d *ItemDefinition) AppliesAffliction(kind AfflictionKind) bool {
	for _, a := range d.Afflictions {
		if a == kind {
			return true
		}
	}
	return false
}

// Catalog is an immutable lookup of item definitions by id.
type Catalog struct {
	byID map[string]*ItemDefinition
}

// NewCatalog indexes defs by id. Later duplicates replace earlier ones;
// config.LoadCatalog rejects duplicates before this is reached.
func NewCatalog(defs []ItemDefinition) *Catalog {
	c := &Catalog{byID: make(map[string]*ItemDefinition, len(defs))}
	for i := range defs {
		d := defs[i]
		c.byID[d.ID] = &d
	}
	return c
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id string) (*ItemDefinition, error) {
	d, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, id)
	}
	return d, nil
}

// Len returns the number of definitions.
func (c *Catalog) Len() int { return len(c.byID) }
