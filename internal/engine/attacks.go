package engine

import (
	"errors"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/damage"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
)

// execAttack fires plan's weapon at the target. Melee and ranged weapons
// wear one use before any damage is dealt, so a weapon that left the
// backpack after planning skips the attack. Ranged weapons also spend one
// ammo instance and take their damage profile from it; thrown weapons are
// spent themselves.
func (rc *roundContext) execAttack(plan *plannedAction, c game.Attack) error {
	actor, target := plan.actor, plan.target
	stim := actor.Stimulated()

	profile := plan.def
	broken := false
	switch plan.def.Type {
	case game.ItemRangedWeapon:
		var err error
		if broken, err = rc.wearWeapon(plan); err != nil {
			return err
		}
		if err := rc.r.inv.Consume(rc.ctx, actor.UserID, plan.ammo.ID); err != nil {
			return err
		}
		profile = plan.ammoDf
	case game.ItemThrowableWeapon:
		if err := rc.r.inv.Consume(rc.ctx, actor.UserID, plan.item.ID); err != nil {
			return err
		}
	case game.ItemMeleeWeapon:
		var err error
		if broken, err = rc.wearWeapon(plan); err != nil {
			return err
		}
	case game.ItemAmmunition, game.ItemHelmet, game.ItemBodyArmor, game.ItemMedical,
		game.ItemStimulant, game.ItemBackpack, game.ItemOther:
		return errInvalidAction
	}

	accuracy := plan.def.Accuracy + stim.AccuracyBonus
	if actor.HasAffliction(game.AfflictionBrokenArm) {
		accuracy /= 2
	}
	raw := profile.Damage * float64(100+stim.DamageBonusPercent) / 100

	var hits []damage.LimbHit
	if profile.LimbSpreadCount > 1 {
		hits = damage.SpreadHits(rc.r.src, accuracy, c.Limb, profile.LimbSpreadCount)
		raw /= float64(len(hits))
	} else {
		hits = []damage.LimbHit{damage.ResolveLimbHit(rc.r.src, accuracy, c.Limb)}
	}

	lo, err := rc.r.inv.Loadout(rc.ctx, target.UserID)
	if err != nil {
		return err
	}
	armor := protection(lo.Armor)
	helmet := protection(lo.Helmet)

	for _, hit := range hits {
		res := damage.ApplyArmor(raw, profile.Penetration, hit.Limb, armor, helmet)
		target.Damage(res.Total)
		out := &AttackOutcome{Limb: hit.Limb, Accurate: hit.Accurate, DamageTotal: res.Total, DamageReduced: res.Reduced}

		if p := damage.ProtectionFor(hit.Limb, armor, helmet); p != nil && damage.ArmorShouldDegrade(profile.Penetration, p.Level) {
			_, destroyed, err := rc.r.inv.ConsumeDurability(rc.ctx, target.UserID, p.ItemID, 1)
			switch {
			case err == nil && destroyed:
				out.ItemsBroken = append(out.ItemsBroken, p.ItemID)
				if p == armor {
					armor = nil
				} else {
					helmet = nil
				}
			case err != nil && !errors.Is(err, game.ErrStateConflict):
				return err
			}
		}
		rc.add(Entry{Kind: EntryAttack, Actor: actor.UserID, Target: target.UserID, Item: plan.def.ID, Hit: out})

		if hit.Limb == game.LimbArm && rc.r.src.Float64() < rc.r.rules.BrokenArmChance {
			if target.Afflict(game.AfflictionBrokenArm, 0) {
				rc.add(Entry{Kind: EntryAffliction, Actor: target.UserID, Affliction: game.AfflictionBrokenArm})
			}
		}
	}

	for _, kind := range profile.Afflictions {
		turns := 0
		if kind == game.AfflictionBurning {
			turns = rc.r.rules.BurningTurns
		}
		if target.Afflict(kind, turns) {
			rc.add(Entry{Kind: EntryAffliction, Actor: target.UserID, Affliction: kind})
		}
	}

	if broken {
		rc.add(Entry{Kind: EntryBroken, Actor: actor.UserID, Item: plan.def.ID})
	}
	return nil
}

// wearWeapon takes one use off the weapon. Weapons without durability are
// only checked to still be in the actor's backpack.
func (rc *roundContext) wearWeapon(plan *plannedAction) (destroyed bool, err error) {
	_, destroyed, err = rc.r.inv.ConsumeDurability(rc.ctx, plan.actor.UserID, plan.item.ID, 1)
	return destroyed, err
}

func protection(eq *game.EquippedItem) *damage.Protection {
	if eq == nil {
		return nil
	}
	return &damage.Protection{ItemID: eq.Instance.ID, Level: eq.Definition.ArmorLevel}
}
