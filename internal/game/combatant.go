package game

// AfflictionKind names a negative status applied by combat events.
type AfflictionKind string

const (
	AfflictionBurning   AfflictionKind = "burning"
	AfflictionBrokenArm AfflictionKind = "broken_arm"
)

// Valid reports whether k is a known affliction.
func (k AfflictionKind) Valid() bool {
	switch k {
	case AfflictionBurning, AfflictionBrokenArm:
		return true
	}
	return false
}

// Affliction is an active status. TurnsRemaining <= 0 means it lasts until
// cured or the duel ends.
type Affliction struct {
	Kind           AfflictionKind `json:"kind"`
	TurnsRemaining int            `json:"turns_remaining"`
}

// EquippedItem pairs an instance with its definition.
type EquippedItem struct {
	Instance   ItemInstance
	Definition *ItemDefinition
}

// Loadout is the set of equipped items of one owner.
type Loadout struct {
	Weapon   *EquippedItem
	Armor    *EquippedItem
	Helmet   *EquippedItem
	Backpack *EquippedItem
}

// Combatant is a duel participant's live state. It is duel-scoped: the
// manager builds it from the Account and writes health back on termination.
type Combatant struct {
	UserID           string
	Name             string
	HealthCurrent    int
	HealthMax        int
	Loadout          Loadout
	ActiveStimulants map[string]StimulantEffect
	Afflictions      []Affliction
}

// NewCombatant builds a combatant from an account row.
func NewCombatant(a *Account) *Combatant {
	hp := a.HealthCurrent
	if hp > a.HealthMax {
		hp = a.HealthMax
	}
	if hp < 0 {
		hp = 0
	}
	return &Combatant{
		UserID:           a.UserID,
		Name:             a.Name,
		HealthCurrent:    hp,
		HealthMax:        a.HealthMax,
		ActiveStimulants: map[string]StimulantEffect{},
	}
}

// Alive reports whether the combatant still has health.
func (c *Combatant) Alive() bool { return c.HealthCurrent > 0 }

// Damage subtracts amount, clamping at zero, and returns the health lost.
func (c *Combatant) Damage(amount int) int {
	if amount <= 0 {
		return 0
	}
	if amount > c.HealthCurrent {
		amount = c.HealthCurrent
	}
	c.HealthCurrent -= amount
	return amount
}

// Heal adds amount, clamping at HealthMax, and returns the health gained.
func (c *Combatant) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	if c.HealthCurrent+amount > c.HealthMax {
		amount = c.HealthMax - c.HealthCurrent
	}
	c.HealthCurrent += amount
	return amount
}

// HasAffliction reports whether kind is active.
func (c *Combatant) HasAffliction(kind AfflictionKind) bool {
	for _, a := range c.Afflictions {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Afflict adds kind or refreshes its duration when already active.
// It returns false when the affliction was already present.
func (c *Combatant) Afflict(kind AfflictionKind, turns int) bool {
	for i := range c.Afflictions {
		if c.Afflictions[i].Kind == kind {
			if turns > c.Afflictions[i].TurnsRemaining {
				c.Afflictions[i].TurnsRemaining = turns
			}
			return false
		}
	}
	c.Afflictions = append(c.Afflictions, Affliction{Kind: kind, TurnsRemaining: turns})
	return true
}

// Cure removes kind and reports whether it was active.
func (c *Combatant) Cure(kind AfflictionKind) bool {
	for i := range c.Afflictions {
		if c.Afflictions[i].Kind == kind {
			c.Afflictions = append(c.Afflictions[:i], c.Afflictions[i+1:]...)
			return true
		}
	}
	return false
}

// Stimulated sums the effects of every active stimulant.
func (c *Combatant) Stimulated() StimulantEffect {
	var total StimulantEffect
	for _, e := range c.ActiveStimulants {
		total.AccuracyBonus += e.AccuracyBonus
		total.DamageBonusPercent += e.DamageBonusPercent
		total.SpeedBonus += e.SpeedBonus
	}
	return total
}
