// Package damage holds the pure combat math: where a hit lands and how much
// of it gets through armor. Nothing here touches storage.
package damage

import (
	"math"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/game"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/random"
)

// Cumulative thresholds on a 0..100 roll for untargeted hits.
const (
	headThreshold = 10.0
	armThreshold  = 25.0
	legThreshold  = 40.0
)

const (
	headMultiplier = 1.5
	limbMultiplier = 0.5
)

// LimbHit is where an attack landed. Accurate is true only when a targeted
// roll succeeded.
type LimbHit struct {
	Limb     game.Limb `json:"limb"`
	Accurate bool      `json:"accurate"`
}

// Result is the damage dealt after armor. Total is always >= 1.
type Result struct {
	Total   int `json:"total"`
	Reduced int `json:"reduced"`
}

// Protection is the equipped armor or helmet covering a limb.
type Protection struct {
	ItemID uint
	Level  float64
}

// ResolveLimbHit picks the limb an attack with the given accuracy lands on.
// A targeted roll succeeds with probability accuracy/100 (accuracy/200 for
// the head); otherwise the hit falls back to the untargeted distribution.
func ResolveLimbHit(src random.Source, accuracy int, target *game.Limb) LimbHit {
	if accuracy < 0 {
		accuracy = 0
	}
	if accuracy > 100 {
		accuracy = 100
	}
	if target != nil {
		chance := float64(accuracy) / 100
		if *target == game.LimbHead {
			chance = float64(accuracy) / 200
		}
		if src.Float64() < chance {
			return LimbHit{Limb: *target, Accurate: true}
		}
	}
	return LimbHit{Limb: randomLimb(src)}
}

func randomLimb(src random.Source) game.Limb {
	roll := src.Float64() * 100
	switch {
	case roll < headThreshold:
		return game.LimbHead
	case roll < armThreshold:
		return game.LimbArm
	case roll < legThreshold:
		return game.LimbLeg
	default:
		return game.LimbChest
	}
}

// SpreadHits resolves n distinct limbs for limb-spread ammunition. The first
// hit honors target; the rest are untargeted, redrawing duplicates. n is
// clamped to 1..len(game.AllLimbs).
func SpreadHits(src random.Source, accuracy int, target *game.Limb, n int) []LimbHit {
	if n < 1 {
		n = 1
	}
	if n > len(game.AllLimbs) {
		n = len(game.AllLimbs)
	}
	first := ResolveLimbHit(src, accuracy, target)
	hits := []LimbHit{first}
	seen := map[game.Limb]bool{first.Limb: true}
	for len(hits) < n {
		l := randomLimb(src)
		if seen[l] {
			continue
		}
		seen[l] = true
		hits = append(hits, LimbHit{Limb: l})
	}
	return hits
}

// ApplyArmor reduces raw damage for a hit on limb. Chest hits are checked
// against armor, head hits take x1.5 and are checked against helmet, arms
// and legs take half damage and ignore armor.
func ApplyArmor(raw, penetration float64, limb game.Limb, armor, helmet *Protection) Result {
	base := normalize(raw)
	switch limb {
	case game.LimbChest:
		return reduce(base, penetration, armor)
	case game.LimbHead:
		return reduce(normalize(float64(base)*headMultiplier), penetration, helmet)
	case game.LimbArm, game.LimbLeg:
		total := max1(int(math.Round(float64(base) * limbMultiplier)))
		return Result{Total: total, Reduced: base - total}
	}
	return Result{Total: base}
}

func reduce(raw int, penetration float64, p *Protection) Result {
	if p == nil || penetration >= p.Level {
		return Result{Total: raw}
	}
	divisor := p.Level + (p.Level - penetration)
	total := max1(int(math.Round(float64(raw) * penetration / divisor)))
	if total > raw {
		total = raw
	}
	return Result{Total: total, Reduced: raw - total}
}

// ArmorShouldDegrade reports whether a hit with penetration wears down
// protection of the given level.
func ArmorShouldDegrade(penetration, level float64) bool {
	return penetration > level-1
}

// ProtectionFor returns the piece covering limb, or nil for limbs that
// bypass armor.
func ProtectionFor(limb game.Limb, armor, helmet *Protection) *Protection {
	switch limb {
	case game.LimbChest:
		return armor
	case game.LimbHead:
		return helmet
	case game.LimbArm, game.LimbLeg:
		return nil
	}
	return nil
}

func normalize(raw float64) int {
	if math.IsNaN(raw) {
		return 1
	}
	return max1(int(math.Round(raw)))
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
