// internal/rating/glicko2.go
package rating

import "math"

const (
	// GlickoScale converts between the 1500-based scale and Glicko-2's mu.
	GlickoScale = 173.7178
	// DefaultRating is the starting rating on the 1500-based scale.
	DefaultRating = 1500.0
	// DefaultRD is the starting rating deviation on the 1500-based scale.
	DefaultRD = 350.0
	// DefaultVolatility is the starting sigma.
	DefaultVolatility = 0.06
	// Tau constrains volatility changes.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// glicko2 is a rating in Glicko-2 space.
type glicko2 struct {
	mu    float64
	phi   float64
	sigma float64
}

func toGlicko2(r Rating) glicko2 {
	return glicko2{
		mu:    (r.Rating - DefaultRating) / GlickoScale,
		phi:   r.RD / GlickoScale,
		sigma: r.Volatility,
	}
}

func (g glicko2) toRating() Rating {
	return Rating{
		Rating:     g.mu*GlickoScale + DefaultRating,
		RD:         g.phi * GlickoScale,
		Volatility: g.sigma,
	}
}

// update performs a single-match Glicko-2 update of r against opp, given
// r's score in [0..1].
func update(r, opp glicko2, score float64) glicko2 {
	gVal := g(opp.phi)
	eVal := expected(r.mu, opp.mu, opp.phi)

	v := 1.0 / (gVal * gVal * eVal * (1 - eVal))
	delta := v * gVal * (score - eVal)

	// Volatility by the Illinois variant of regula falsi.
	a := math.Log(r.sigma * r.sigma)
	fn := func(x float64) float64 { return f(x, r.phi, v, delta, a) }

	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for fn(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := fn(A), fn(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fn(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	newSigma := math.Exp(A / 2)
	phiStar := math.Sqrt(r.phi*r.phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muPrime := r.mu + phiPrime*phiPrime*gVal*(score-eVal)

	return glicko2{mu: muPrime, phi: phiPrime, sigma: newSigma}
}

// g is 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

// expected is E(mu,mu2,phi2) = 1/(1+exp[-g(phi2)*(mu-mu2)]).
func expected(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the volatility root-finding function.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return (num / den) - ((x - a) / (Tau * Tau))
}
