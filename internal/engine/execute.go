package engine

import (
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
)

// executePlans runs the ordered plans until one of them ends the round.
func (rc *roundContext) executePlans(plans []plannedAction) error {
	for i := range plans {
		if rc.done() {
			break
		}
		plan := &plans[i]
		var err error
		switch c := plan.choice.(type) {
		case game.Attack:
			err = rc.execAttack(plan, c)
		case game.UseMedical:
			err = rc.execMedical(plan)
		case game.UseStimulant:
			err = rc.execStimulant(plan)
		case game.Flee:
			rc.execFlee(plan)
		}
		if err != nil {
			if skippable(err) {
				rc.add(Entry{Kind: EntrySkipped, Actor: plan.actor.UserID, Reason: err.Error()})
				continue
			}
			return err
		}
		if !plan.target.Alive() {
			rc.add(Entry{Kind: EntryDefeated, Actor: plan.target.UserID})
		}
	}
	return nil
}

func (rc *roundContext) execFlee(plan *plannedAction) {
	if rc.r.src.Float64() < rc.r.rules.FleeChance {
		rc.result.Fled = plan.actor.UserID
		rc.add(Entry{Kind: EntryFlee, Actor: plan.actor.UserID})
		return
	}
	rc.add(Entry{Kind: EntryFleeFailed, Actor: plan.actor.UserID})
}

// useItem spends one use of a consumable: a durability point when the item
// has durability, the whole instance otherwise.
func (rc *roundContext) useItem(owner string, it *game.ItemInstance, def *game.ItemDefinition) (destroyed bool, err error) {
	if def.HasDurability() {
		_, destroyed, err = rc.r.inv.ConsumeDurability(rc.ctx, owner, it.ID, 1)
		return destroyed, err
	}
	return true, rc.r.inv.Consume(rc.ctx, owner, it.ID)
}

func (rc *roundContext) execMedical(plan *plannedAction) error {
	if _, err := rc.useItem(plan.actor.UserID, plan.item, plan.def); err != nil {
		return err
	}
	healed := plan.actor.Heal(plan.def.Heal)
	rc.add(Entry{Kind: EntryMedical, Actor: plan.actor.UserID, Item: plan.def.ID, Amount: healed})
	for _, kind := range plan.def.Cures {
		if plan.actor.Cure(kind) {
			rc.add(Entry{Kind: EntryMedical, Actor: plan.actor.UserID, Item: plan.def.ID, Affliction: kind, Reason: "cured"})
		}
	}
	return nil
}

// execStimulant applies a stimulant once per definition; using another dose
// of an active stimulant spends the item without adding to the effect.
func (rc *roundContext) execStimulant(plan *plannedAction) error {
	if _, err := rc.useItem(plan.actor.UserID, plan.item, plan.def); err != nil {
		return err
	}
	if _, active := plan.actor.ActiveStimulants[plan.def.ID]; active {
		rc.add(Entry{Kind: EntryStimulant, Actor: plan.actor.UserID, Item: plan.def.ID, Reason: "already active"})
		return nil
	}
	plan.actor.ActiveStimulants[plan.def.ID] = plan.def.Stimulant
	rc.add(Entry{Kind: EntryStimulant, Actor: plan.actor.UserID, Item: plan.def.ID})
	return nil
}
