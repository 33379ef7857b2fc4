// internal/duel/rules.go
package duel

const (
	MaxHP             = 200
	MaxHandSize       = 4
	MaxFieldSize      = 4
	ExhaustionPenalty = 10

	// DefaultPracticeDeckSize is how many random cards each practice seat receives.
	DefaultPracticeDeckSize = 20
)

func clampHP(hp int) int {
	if hp < 0 {
		return 0
	}
	if hp > MaxHP {
		return MaxHP
	}
	return hp
}
