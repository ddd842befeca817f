package policy

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

const (
	bayesExplorationBudget = 25
	bayesLengthScale       = 0.2
	bayesNoiseVariance     = 1e-6
	bayesUCBKappa          = 2.0
	bayesStopThreshold     = 0.5
	bayesParamMin          = 0.0
	bayesParamMax          = 1.0
)

// OptimizerSignal tells a caller whether to keep sampling or stop early.
type OptimizerSignal int

const (
	Continue OptimizerSignal = iota
	Stop
)

type bayesObservation struct {
	x float64
	y float64
}

// BayesianOptimizer searches a single real-valued attack parameter in
// [0, 1] using a Gaussian Process with an RBF kernel and an upper
// confidence bound acquisition function. It reports Stop once the best
// observed failure rate exceeds a configured early-stop threshold, so a
// scan need not exhaust its full attempt budget.
type BayesianOptimizer struct {
	observations    []bayesObservation
	bestFailureRate float64
}

func NewBayesianOptimizer() *BayesianOptimizer {
	return &BayesianOptimizer{}
}

// Next returns the next parameter value to try. The first
// bayesExplorationBudget calls sample uniformly; afterward it suggests
// the point maximizing the GP's upper confidence bound.
func (o *BayesianOptimizer) Next() float64 {
	if len(o.observations) < bayesExplorationBudget {
		return bayesParamMin + rand.Float64()*(bayesParamMax-bayesParamMin)
	}

	return o.suggest()
}

// Report records the outcome of trying x (a failure rate in [0, 1]) and
// returns whether the caller should stop sampling.
func (o *BayesianOptimizer) Report(x, failureRate float64) OptimizerSignal {
	o.observations = append(o.observations, bayesObservation{x: x, y: failureRate})

	if failureRate > o.bestFailureRate {
		o.bestFailureRate = failureRate
	}

	if o.bestFailureRate > bayesStopThreshold {
		return Stop
	}

	return Continue
}

func (o *BayesianOptimizer) suggest() float64 {
	const candidatePoints = 200

	bestCandidate := 0.0
	bestScore := math.Inf(-1)

	for i := 0; i < candidatePoints; i++ {
		candidate := bayesParamMin + (bayesParamMax-bayesParamMin)*float64(i)/(candidatePoints-1)

		mean, variance := o.predict(candidate)
		score := mean + bayesUCBKappa*math.Sqrt(math.Max(variance, 0))

		if score > bestScore {
			bestScore = score
			bestCandidate = candidate
		}
	}

	return bestCandidate
}

// predict returns the GP posterior mean and variance at x, conditioned
// on all observations so far.
func (o *BayesianOptimizer) predict(x float64) (float64, float64) {
	n := len(o.observations)
	if n == 0 {
		return 0, 1
	}

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := rbfKernel(o.observations[i].x, o.observations[j].x)
			if i == j {
				v += bayesNoiseVariance
			}
			k.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return o.meanObserved(), 1
	}

	kStar := mat.NewVecDense(n, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		kStar.SetVec(i, rbfKernel(x, o.observations[i].x))
		y.SetVec(i, o.observations[i].y)
	}

	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, y); err != nil {
		return o.meanObserved(), 1
	}

	mean := mat.Dot(kStar, &alpha)

	var v mat.VecDense
	if err := chol.SolveVecTo(&v, kStar); err != nil {
		return mean, 1
	}

	variance := rbfKernel(x, x) - mat.Dot(kStar, &v)

	return mean, variance
}

func (o *BayesianOptimizer) meanObserved() float64 {
	if len(o.observations) == 0 {
		return 0
	}

	sum := 0.0
	for _, obs := range o.observations {
		sum += obs.y
	}

	return sum / float64(len(o.observations))
}

func rbfKernel(a, b float64) float64 {
	d := a - b
	return math.Exp(-(d * d) / (2 * bayesLengthScale * bayesLengthScale))
}
