// Package rating keeps Glicko-2 ratings for live duel players.
package rating

// Rating is a player's rating on the 1500-based scale.
type Rating struct {
	Rating     float64 `json:"rating"`
	RD         float64 `json:"rd"`
	Volatility float64 `json:"volatility"`
	Duels      int     `json:"duels"`
}

// New returns the starting rating for an unrated player.
func New() Rating {
	return Rating{Rating: DefaultRating, RD: DefaultRD, Volatility: DefaultVolatility}
}

// orNew fills in a zero Rating, e.g. one read for an unknown player.
func (r Rating) orNew() Rating {
	if r.RD == 0 && r.Volatility == 0 {
		n := New()
		n.Duels = r.Duels
		return n
	}
	return r
}

// Update1v1 rates one duel between a and b. scoreA is 1 when a won, 0 when
// b won and 0.5 on a draw. Both sides update from the pre-duel ratings.
func Update1v1(a, b Rating, scoreA float64) (Rating, Rating) {
	a, b = a.orNew(), b.orNew()
	ga, gb := toGlicko2(a), toGlicko2(b)

	na := update(ga, gb, scoreA).toRating()
	nb := update(gb, ga, 1-scoreA).toRating()
	na.Duels = a.Duels + 1
	nb.Duels = b.Duels + 1
	return na, nb
}
