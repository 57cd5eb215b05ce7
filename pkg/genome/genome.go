// Package genome holds the symbolic genome alphabet, the clone-with-mutation
// operator, and the prefix decoders rule sets use to build phenotypes.
//
// A Genome is treated as immutable once created: every function in this
// package that derives a genome returns a freshly allocated slice.
package genome

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Base is one of the four genome symbols. Each carries two bits; the numeric
// order A < C < T < G is what the decoders pack.
type Base uint8

const (
	A Base = iota
	C
	T
	G
)

// Bases lists the alphabet in decoding order.
var Bases = [4]Base{A, C, T, G}

// String returns the single-letter symbol.
func (b Base) String() string {
	switch b {
	case A:
		return "A"
	case C:
		return "C"
	case T:
		return "T"
	case G:
		return "G"
	default:
		return "?"
	}
}

// RandomBase draws a uniformly distributed symbol.
func RandomBase(rng *rand.Rand) Base {
	return Base(rng.IntN(len(Bases)))
}

// Genome is an ordered sequence of bases. It may be empty.
type Genome []Base

// New copies the given bases into a new genome.
func New(bases ...Base) Genome {
	return append(Genome(nil), bases...)
}

// Random returns a genome of n uniformly drawn bases.
func Random(rng *rand.Rand, n int) Genome {
	if n <= 0 {
		return Genome{}
	}
	g := make(Genome, n)
	for i := range g {
		g[i] = RandomBase(rng)
	}
	return g
}

// Parse converts a string such as "ATCG" into a genome. Letters are
// case-insensitive; whitespace is ignored.
func Parse(s string) (Genome, error) {
	g := make(Genome, 0, len(s))
	for i, r := range s {
		switch r {
		case 'A', 'a':
			g = append(g, A)
		case 'C', 'c':
			g = append(g, C)
		case 'T', 't':
			g = append(g, T)
		case 'G', 'g':
			g = append(g, G)
		case ' ', '\t', '\n', '\r':
		default:
			return nil, fmt.Errorf("genome: invalid symbol %q at offset %d", r, i)
		}
	}
	return g, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Genome {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

// String renders the genome as a letter sequence.
func (g Genome) String() string {
	var sb strings.Builder
	sb.Grow(len(g))
	for _, b := range g {
		sb.WriteString(b.String())
	}
	return sb.String()
}

// Len returns the number of bases.
func (g Genome) Len() int { return len(g) }

// Clone returns an independent copy.
func (g Genome) Clone() Genome {
	return append(Genome{}, g...)
}

// Equal reports whether two genomes hold the same bases in the same order.
func (g Genome) Equal(other Genome) bool {
	if len(g) != len(other) {
		return false
	}
	for i := range g {
		if g[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether g starts with prefix.
func (g Genome) HasPrefix(prefix Genome) bool {
	if len(prefix) > len(g) {
		return false
	}
	return g[:len(prefix)].Equal(prefix)
}

// Count returns how many times b occurs in g.
func (g Genome) Count(b Base) int {
	n := 0
	for _, v := range g {
		if v == b {
			n++
		}
	}
	return n
}
