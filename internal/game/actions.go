package game

import "fmt"

// Limb is a hit location.
type Limb string

const (
	LimbHead  Limb = "head"
	LimbChest Limb = "chest"
	LimbArm   Limb = "arm"
	LimbLeg   Limb = "leg"
)

// AllLimbs lists every hit location once.
var AllLimbs = []Limb{LimbHead, LimbChest, LimbArm, LimbLeg}

// ParseLimb converts a wire value into a Limb.
func ParseLimb(s string) (Limb, error) {
	switch Limb(s) {
	case LimbHead, LimbChest, LimbArm, LimbLeg:
		return Limb(s), nil
	}
	return "", fmt.Errorf("unknown limb %q", s)
}

// ActionKind tags ActionChoice variants.
type ActionKind string

const (
	ActionAttack       ActionKind = "attack"
	ActionUseMedical   ActionKind = "use_medical"
	ActionUseStimulant ActionKind = "use_stimulant"
	ActionFlee         ActionKind = "flee"
)

// ActionChoice is the sealed set of per-round actions. Only the types in
// this file implement it.
type ActionChoice interface {
	Kind() ActionKind
	action()
}

// Attack fires or swings Weapon. Ammo is required for ranged weapons and
// ignored otherwise. Limb is an optional targeted location.
type Attack struct {
	Weapon uint  `json:"weapon_id"`
	Ammo   *uint `json:"ammo_id,omitempty"`
	Limb   *Limb `json:"limb,omitempty"`
}

// UseMedical consumes one use of a medical item.
type UseMedical struct {
	Item uint `json:"item_id"`
}

// UseStimulant consumes one use of a stimulant item.
type UseStimulant struct {
	Item uint `json:"item_id"`
}

// Flee attempts to leave the duel.
type Flee struct{}

func (Attack) Kind() ActionKind       { return ActionAttack }
func (UseMedical) Kind() ActionKind   { return ActionUseMedical }
func (UseStimulant) Kind() ActionKind { return ActionUseStimulant }
func (Flee) Kind() ActionKind         { return ActionFlee }

func (Attack) action()       {}
func (UseMedical) action()   {}
func (UseStimulant) action() {}
func (Flee) action()         {}

// PromptStage names a selection step inside a participant's turn. Each stage
// carries its own deadline; see service.Manager.BeginChoice.
type PromptStage string

const (
	StageAction    PromptStage = "action"
	StageWeapon    PromptStage = "weapon"
	StageAmmo      PromptStage = "ammo"
	StageLimb      PromptStage = "limb"
	StageMedical   PromptStage = "medical"
	StageStimulant PromptStage = "stimulant"
)

// ParsePromptStage converts a wire value into a PromptStage.
func ParsePromptStage(s string) (PromptStage, error) {
	switch PromptStage(s) {
	case StageAction, StageWeapon, StageAmmo, StageLimb, StageMedical, StageStimulant:
		return PromptStage(s), nil
	}
	return "", fmt.Errorf("unknown prompt stage %q", s)
}
