package battle

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Dice is the single source of randomness for the engine. *rand.Rand satisfies it.
type Dice interface {
	// Float64 returns a number in [0.0, 1.0)
	Float64() float64
	// IntN returns a number in [0, n)
	IntN(n int) int
}

func CreateRandomStateSeed() rand.PCG {
	var randBytes [16]byte
	_, err := cryptoRand.Read(randBytes[:])
	if err != nil {
		panic(err)
	}

	return *rand.NewPCG(binary.LittleEndian.Uint64(randBytes[0:8]), binary.LittleEndian.Uint64(randBytes[8:]))
}

// NewDice wraps a seeded PCG so it can be shared between goroutines.
func NewDice(seed *rand.PCG) Dice {
	return &lockedDice{rng: rand.New(seed)}
}

// NewSeededDice returns dice with a fixed seed, handy for reproducing a battle.
func NewSeededDice(seed1 uint64, seed2 uint64) Dice {
	return NewDice(rand.NewPCG(seed1, seed2))
}

type lockedDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (d *lockedDice) Float64() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64()
}

func (d *lockedDice) IntN(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(n)
}

// rollInclusive returns a number in [low, high]
func rollInclusive(dice Dice, low int, high int) int {
	return low + dice.IntN(high-low+1)
}
