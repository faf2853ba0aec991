package battle

import (
	"math"

	"github.com/go-logr/logr"
)

var damageLogger = func() logr.Logger {
	return internalLogger.WithName("damage")
}

const (
	CRIT_CHANCE = 0.0625
	CRIT_BOOST  = 1.5
	STAB_BOOST  = 1.5

	// damage is multiplied by a random number in [MIN_SPREAD, 1.0]
	MIN_SPREAD = 0.85
)

type DamageResult struct {
	Damage        int
	Missed        bool
	Critical      bool
	Effectiveness float64
}

func (r DamageResult) Immune() bool {
	return !r.Missed && r.Effectiveness == NO_EFFECT
}

// Damage rolls the damage an attacking pokemon does to a defending pokemon with move.
//
// Dice are consumed in this order: accuracy, crit, random spread. A miss or an immune defender
// returns early with no damage and consumes no further dice.
func Damage(attacker BattlePokemon, defender BattlePokemon, move BattleMove, dice Dice) DamageResult {
	accuracyRoll := dice.Float64() * 100
	if accuracyRoll > float64(move.Accuracy) {
		damageLogger().V(1).Info("move missed", "move", move.Name, "roll", accuracyRoll, "accuracy", move.Accuracy)
		return DamageResult{Missed: true, Effectiveness: NEUTRAL_EFFECTIVENESS}
	}

	// Flat stand-ins for the attack and defense stats
	attackStat := float64(50 + attacker.Level*2)
	defenseStat := float64(50 + defender.Level*2)

	effectiveness := DefenseEffectiveness(move.Type, defender.Types)
	if effectiveness == NO_EFFECT {
		damageLogger().V(1).Info("defender is immune", "moveType", move.Type, "defenderTypes", defender.Types)
		return DamageResult{Effectiveness: effectiveness}
	}

	crit := dice.Float64() < CRIT_CHANCE
	critBoost := 1.0
	if crit {
		critBoost = CRIT_BOOST
	}

	stab := 1.0
	if attacker.HasType(move.Type) {
		stab = STAB_BOOST
	}

	randomSpread := MIN_SPREAD + dice.Float64()*(1-MIN_SPREAD)

	damageInner := ((2*float64(attacker.Level)/5+2)*float64(move.Power)*(attackStat/defenseStat))/50 + 2
	damage := math.Floor(damageInner * critBoost * effectiveness * stab * randomSpread)

	// Anything that connects does at least 1 damage
	finalDamage := max(int(damage), 1)

	damageLogger().V(2).Info("final damage",
		"power", move.Power,
		"attackerLevel", attacker.Level,
		"attackValue", attackStat,
		"defValue", defenseStat,
		"attackType", move.Type,
		"damageInner", damageInner,
		"randomSpread", randomSpread,
		"STAB", stab,
		"Net Type Effectiveness", effectiveness,
		"crit", critBoost,
		"damage", finalDamage)

	return DamageResult{
		Damage:        finalDamage,
		Critical:      crit,
		Effectiveness: effectiveness,
	}
}
