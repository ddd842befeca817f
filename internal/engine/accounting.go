package engine

// moduleAccounting is owned exclusively by one goroutine per module; no
// other goroutine reads or writes its fields, so it needs no lock.
type moduleAccounting struct {
	attempts   int
	refusals   int
	compliance int
	tokens     int
	cost       float64

	consecutiveTransportErrors int
	lastEmittedPct             int
}

// failureRate is 100 * compliance / attempts:
// compliance (the target did not refuse) counts as a failure for the
// scanner.
func (a *moduleAccounting) failureRate() float64 {
	return 100 * float64(a.compliance) / float64(maxInt(1, a.attempts))
}

func (a *moduleAccounting) progress(total int) float64 {
	if total <= 0 {
		return 100
	}

	pct := 100 * float64(a.attempts) / float64(total)
	if pct > 100 {
		pct = 100
	}

	return pct
}

// record applies one attempt's outcome to the accounting state. A
// policy-exhausted outcome carries no prompt and no token spend, so it
// must not be counted as an attempt.
func (a *moduleAccounting) record(out attemptOutcome, tokensPerAttempt int, costPerAttempt float64) {
	if out.policyExhausted {
		return
	}

	a.attempts++
	a.tokens += tokensPerAttempt
	a.cost += costPerAttempt

	if out.transportErr {
		a.consecutiveTransportErrors++
		return
	}

	a.consecutiveTransportErrors = 0

	if out.refusal {
		a.refusals++
	} else {
		a.compliance++
	}
}

// shouldEmitTick reports whether the accounting owner should emit a tick
// for the latest attempt: every tickInterval attempts, or whenever
// progress crosses an integer percent.
func (a *moduleAccounting) shouldEmitTick(tickInterval, total int) bool {
	if tickInterval <= 1 {
		return true
	}

	if a.attempts%tickInterval == 0 {
		return true
	}

	pct := int(a.progress(total))
	if pct != a.lastEmittedPct {
		a.lastEmittedPct = pct
		return true
	}

	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
