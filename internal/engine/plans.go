package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
)

var errInvalidAction = errors.New("invalid action")

// plannedAction is a validated action ready to execute.
type plannedAction struct {
	actor  *game.Combatant
	target *game.Combatant
	choice game.ActionChoice
	item   *game.ItemInstance
	def    *game.ItemDefinition
	ammo   *game.ItemInstance
	ammoDf *game.ItemDefinition
	speed  int
}

// plan re-validates choice against the live inventory. Ownership, container
// and item type are checked here, at resolution time, not when the choice
// was submitted.
func (rc *roundContext) plan(actor, target *game.Combatant, choice game.ActionChoice) (*plannedAction, error) {
	p := &plannedAction{actor: actor, target: target, choice: choice}
	switch c := choice.(type) {
	case game.Attack:
		it, def, err := rc.backpackItem(actor, c.Weapon)
		if err != nil {
			return nil, err
		}
		if !def.Type.IsWeapon() {
			return nil, fmt.Errorf("%w: %s is not a weapon", errInvalidAction, def.ID)
		}
		p.item, p.def = it, def
		if def.Type == game.ItemRangedWeapon {
			if c.Ammo == nil {
				return nil, fmt.Errorf("%w: %s needs ammunition", errInvalidAction, def.ID)
			}
			ammo, adef, err := rc.backpackItem(actor, *c.Ammo)
			if err != nil {
				return nil, err
			}
			if adef.Type != game.ItemAmmunition {
				return nil, fmt.Errorf("%w: %s is not ammunition", errInvalidAction, adef.ID)
			}
			p.ammo, p.ammoDf = ammo, adef
		}
		p.speed = def.Speed
	case game.UseMedical:
		it, def, err := rc.backpackItem(actor, c.Item)
		if err != nil {
			return nil, err
		}
		if def.Type != game.ItemMedical {
			return nil, fmt.Errorf("%w: %s is not a medical item", errInvalidAction, def.ID)
		}
		p.item, p.def, p.speed = it, def, def.Speed
	case game.UseStimulant:
		it, def, err := rc.backpackItem(actor, c.Item)
		if err != nil {
			return nil, err
		}
		if def.Type != game.ItemStimulant {
			return nil, fmt.Errorf("%w: %s is not a stimulant", errInvalidAction, def.ID)
		}
		p.item, p.def, p.speed = it, def, def.Speed
	case game.Flee:
	default:
		return nil, fmt.Errorf("%w: unsupported action %T", errInvalidAction, choice)
	}
	p.speed += actor.Stimulated().SpeedBonus
	return p, nil
}

func (rc *roundContext) backpackItem(owner *game.Combatant, id uint) (*game.ItemInstance, *game.ItemDefinition, error) {
	it, def, err := rc.r.inv.Item(rc.ctx, owner.UserID, id)
	if err != nil {
		return nil, nil, err
	}
	if it.Container != game.ContainerBackpack {
		return nil, nil, fmt.Errorf("%w: item %d is not in the backpack", game.ErrStateConflict, id)
	}
	if def.HasDurability() && it.DurabilityRemaining != nil && *it.DurabilityRemaining <= 0 {
		return nil, nil, fmt.Errorf("%w: item %d has no durability left", game.ErrStateConflict, id)
	}
	return it, def, nil
}

// order sorts plans by speed, fastest first. One coin flip per resolution
// decides which side goes first on equal speed.
func (rc *roundContext) order(plans []plannedAction) {
	if len(plans) > 1 && rc.r.src.Intn(2) == 1 {
		plans[0], plans[1] = plans[1], plans[0]
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].speed > plans[j].speed
	})
	rc.result.Order = make([]string, len(plans))
	for i := range plans {
		rc.result.Order[i] = plans[i].actor.UserID
	}
}
