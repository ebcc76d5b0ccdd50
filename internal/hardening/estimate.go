package hardening

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Adversary model for EstimateTimeToCrack: the world's fastest hardware
// is assumed a billion times quicker than this machine, and the attacker
// is assumed to get lucky after searching 0.001% of the keyspace.
const (
	adversarySpeedup = 1e9
	luckFraction     = 1e-5
)

var magnitudes = []struct {
	name  string
	years float64
}{
	{"thousand", 1e3},
	{"million", 1e6},
	{"billion", 1e9},
	{"trillion", 1e12},
	{"quadrillion", 1e15},
	{"quintillion", 1e18},
	{"sextillion", 1e21},
	{"septillion", 1e24},
	{"octillion", 1e27},
	{"nonillion", 1e30},
	{"decillion", 1e33},
	{"undecillion", 1e36},
	{"duodecillion", 1e39},
	{"tredecillion", 1e42},
	{"quattuordecillion", 1e45},
	{"quindecillion", 1e48},
	{"sexdecillion", 1e51},
	{"septendecillion", 1e54},
	{"octodecillion", 1e57},
	{"novemdecillion", 1e60},
	{"vigintillion", 1e63},
}

// EstimateTimeToCrack benchmarks one hardening call with params and
// extrapolates how long a brute-force search over entropyBits of
// keyspace would take the modeled adversary, formatted as a named
// magnitude bucket from minutes up to vigintillion years.
func EstimateTimeToCrack(ctx context.Context, entropyBits float64, params Params) (string, error) {
	salt, err := NewSalt()
	if err != nil {
		return "", err
	}

	start := time.Now()
	key, _, err := Harden(ctx, []byte("benchmark-passphrase"), salt, params, FormatHex512, nil)
	if err != nil {
		return "", err
	}
	key.Destroy()

	perGuess := time.Since(start).Seconds() / adversarySpeedup
	guesses := math.Exp2(entropyBits) * luckFraction
	return FormatCrackTime(guesses * perGuess), nil
}

// FormatCrackTime renders a duration in seconds as a human-readable
// bucket.
func FormatCrackTime(seconds float64) string {
	minutes := seconds / 60
	if minutes < 1 {
		return "less than a minute"
	}
	hours := minutes / 60
	if hours < 1 {
		return fmt.Sprintf("%.0f minutes", minutes)
	}
	days := hours / 24
	if days < 1 {
		return fmt.Sprintf("%.0f hours", hours)
	}
	years := days / 365.25
	if years < 1 {
		return fmt.Sprintf("%.0f days", days)
	}
	if years < 1e3 {
		return fmt.Sprintf("%.0f years", years)
	}
	for i := len(magnitudes) - 1; i >= 0; i-- {
		if years >= magnitudes[i].years {
			scaled := years / magnitudes[i].years
			if i == len(magnitudes)-1 && scaled >= 1e3 {
				return fmt.Sprintf("more than a thousand %s years", magnitudes[i].name)
			}
			return fmt.Sprintf("%.0f %s years", scaled, magnitudes[i].name)
		}
	}
	return fmt.Sprintf("%.0f years", years)
}
