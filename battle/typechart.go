package battle

const (
	TYPENAME_NORMAL   = "normal"
	TYPENAME_FIRE     = "fire"
	TYPENAME_WATER    = "water"
	TYPENAME_ELECTRIC = "electric"
	TYPENAME_GRASS    = "grass"
	TYPENAME_ICE      = "ice"
	TYPENAME_FIGHTING = "fighting"
	TYPENAME_POISON   = "poison"
	TYPENAME_GROUND   = "ground"
	TYPENAME_FLYING   = "flying"
	TYPENAME_PSYCHIC  = "psychic"
	TYPENAME_BUG      = "bug"
	TYPENAME_ROCK     = "rock"
	TYPENAME_GHOST    = "ghost"
	TYPENAME_DRAGON   = "dragon"
	TYPENAME_DARK     = "dark"
	TYPENAME_STEEL    = "steel"
	TYPENAME_FAIRY    = "fairy"
)

const (
	SUPER_EFFECTIVE       = 2.0
	NOT_VERY_EFFECTIVE    = 0.5
	NO_EFFECT             = 0.0
	NEUTRAL_EFFECTIVENESS = 1.0
)

// TYPE_NAMES lists every attacking type in chart order.
var TYPE_NAMES = [...]string{
	TYPENAME_NORMAL, TYPENAME_FIRE, TYPENAME_WATER, TYPENAME_ELECTRIC, TYPENAME_GRASS, TYPENAME_ICE,
	TYPENAME_FIGHTING, TYPENAME_POISON, TYPENAME_GROUND, TYPENAME_FLYING, TYPENAME_PSYCHIC, TYPENAME_BUG,
	TYPENAME_ROCK, TYPENAME_GHOST, TYPENAME_DRAGON, TYPENAME_DARK, TYPENAME_STEEL, TYPENAME_FAIRY,
}

// Attack multipliers keyed by attacking type, then defending type. Pairs that are not listed are neutral.
// Never written to after package init.
var typeChart = map[string]map[string]float64{
	TYPENAME_NORMAL: {
		TYPENAME_ROCK:  .5,
		TYPENAME_STEEL: .5,

		TYPENAME_GHOST: 0,
	},
	TYPENAME_FIRE: {
		TYPENAME_GRASS: 2,
		TYPENAME_ICE:   2,
		TYPENAME_BUG:   2,
		TYPENAME_STEEL: 2,

		TYPENAME_FIRE:   .5,
		TYPENAME_WATER:  .5,
		TYPENAME_ROCK:   .5,
		TYPENAME_DRAGON: .5,
	},
	TYPENAME_WATER: {
		TYPENAME_FIRE:   2,
		TYPENAME_GROUND: 2,
		TYPENAME_ROCK:   2,

		TYPENAME_WATER:  .5,
		TYPENAME_GRASS:  .5,
		TYPENAME_DRAGON: .5,
	},
	TYPENAME_ELECTRIC: {
		TYPENAME_WATER:  2,
		TYPENAME_FLYING: 2,

		TYPENAME_ELECTRIC: .5,
		TYPENAME_GRASS:    .5,
		TYPENAME_DRAGON:   .5,

		TYPENAME_GROUND: 0,
	},
	TYPENAME_GRASS: {
		TYPENAME_WATER:  2,
		TYPENAME_GROUND: 2,
		TYPENAME_ROCK:   2,

		TYPENAME_FIRE:   .5,
		TYPENAME_GRASS:  .5,
		TYPENAME_POISON: .5,
		TYPENAME_FLYING: .5,
		TYPENAME_BUG:    .5,
		TYPENAME_DRAGON: .5,
		TYPENAME_STEEL:  .5,
	},
	TYPENAME_ICE: {
		TYPENAME_GRASS:  2,
		TYPENAME_GROUND: 2,
		TYPENAME_FLYING: 2,
		TYPENAME_DRAGON: 2,

		TYPENAME_FIRE:  .5,
		TYPENAME_WATER: .5,
		TYPENAME_ICE:   .5,
		TYPENAME_STEEL: .5,
	},
	TYPENAME_FIGHTING: {
		TYPENAME_NORMAL: 2,
		TYPENAME_ICE:    2,
		TYPENAME_ROCK:   2,
		TYPENAME_DARK:   2,
		TYPENAME_STEEL:  2,

		TYPENAME_POISON:  .5,
		TYPENAME_FLYING:  .5,
		TYPENAME_PSYCHIC: .5,
		TYPENAME_BUG:     .5,
		TYPENAME_FAIRY:   .5,

		TYPENAME_GHOST: 0,
	},
	TYPENAME_POISON: {
		TYPENAME_GRASS: 2,
		TYPENAME_FAIRY: 2,

		TYPENAME_POISON: .5,
		TYPENAME_GROUND: .5,
		TYPENAME_ROCK:   .5,
		TYPENAME_GHOST:  .5,

		TYPENAME_STEEL: 0,
	},
	TYPENAME_GROUND: {
		TYPENAME_FIRE:     2,
		TYPENAME_ELECTRIC: 2,
		TYPENAME_POISON:   2,
		TYPENAME_ROCK:     2,
		TYPENAME_STEEL:    2,

		TYPENAME_GRASS: .5,
		TYPENAME_BUG:   .5,

		TYPENAME_FLYING: 0,
	},
	TYPENAME_FLYING: {
		TYPENAME_GRASS:    2,
		TYPENAME_FIGHTING: 2,
		TYPENAME_BUG:      2,

		TYPENAME_ELECTRIC: .5,
		TYPENAME_ROCK:     .5,
		TYPENAME_STEEL:    .5,
	},
	TYPENAME_PSYCHIC: {
		TYPENAME_FIGHTING: 2,
		TYPENAME_POISON:   2,

		TYPENAME_PSYCHIC: .5,
		TYPENAME_STEEL:   .5,

		TYPENAME_DARK: 0,
	},
	TYPENAME_BUG: {
		TYPENAME_GRASS:   2,
		TYPENAME_PSYCHIC: 2,
		TYPENAME_DARK:    2,

		TYPENAME_FIRE:     .5,
		TYPENAME_FIGHTING: .5,
		TYPENAME_POISON:   .5,
		TYPENAME_FLYING:   .5,
		TYPENAME_GHOST:    .5,
		TYPENAME_STEEL:    .5,
		TYPENAME_FAIRY:    .5,
	},
	TYPENAME_ROCK: {
		TYPENAME_FIRE:   2,
		TYPENAME_ICE:    2,
		TYPENAME_FLYING: 2,
		TYPENAME_BUG:    2,

		TYPENAME_FIGHTING: .5,
		TYPENAME_GROUND:   .5,
		TYPENAME_STEEL:    .5,
	},
	TYPENAME_GHOST: {
		TYPENAME_PSYCHIC: 2,
		TYPENAME_GHOST:   2,

		TYPENAME_DARK: .5,

		TYPENAME_NORMAL: 0,
	},
	TYPENAME_DRAGON: {
		TYPENAME_DRAGON: 2,

		TYPENAME_STEEL: .5,

		TYPENAME_FAIRY: 0,
	},
	TYPENAME_DARK: {
		TYPENAME_PSYCHIC: 2,
		TYPENAME_GHOST:   2,

		TYPENAME_FIGHTING: .5,
		TYPENAME_DARK:     .5,
		TYPENAME_FAIRY:    .5,
	},
	TYPENAME_STEEL: {
		TYPENAME_ICE:   2,
		TYPENAME_ROCK:  2,
		TYPENAME_FAIRY: 2,

		TYPENAME_FIRE:     .5,
		TYPENAME_WATER:    .5,
		TYPENAME_ELECTRIC: .5,
		TYPENAME_STEEL:    .5,
	},
	TYPENAME_FAIRY: {
		TYPENAME_FIGHTING: 2,
		TYPENAME_DRAGON:   2,
		TYPENAME_DARK:     2,

		TYPENAME_FIRE:   .5,
		TYPENAME_POISON: .5,
		TYPENAME_STEEL:  .5,
	},
}

// Effectiveness returns the multiplier of an attackType move against a single defending type.
// Unknown types on either side are neutral.
func Effectiveness(attackType string, defenderType string) float64 {
	multiplier, ok := typeChart[attackType][defenderType]
	if !ok {
		return NEUTRAL_EFFECTIVENESS
	}
	return multiplier
}

// DefenseEffectiveness multiplies the matchup against every type of the defender.
func DefenseEffectiveness(attackType string, defenderTypes []string) float64 {
	effectiveness := NEUTRAL_EFFECTIVENESS
	for _, defenderType := range defenderTypes {
		effectiveness *= Effectiveness(attackType, defenderType)
	}
	return effectiveness
}
