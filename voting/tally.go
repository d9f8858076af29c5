package voting

// VoteInput is one voter's latest counted opinion. Period 0 is a
// disagreement, anything above is an agreement for that many days.
type VoteInput struct {
	Voter  string
	Period int
}

// Tally is the aggregate outcome of a vote set.
type Tally struct {
	Count  int
	Agree  int
	Passed bool
	// Period is the resulting sanction length in days: the average
	// requested period, each vote capped at the configured maximum,
	// rounded up. Zero unless passed or computed with anyway.
	Period int
}

// Compute tallies a vote set. A proposal passes with three or more votes
// when agreements reach two thirds of the total (real-number comparison),
// or with one or two votes when every vote agrees. Zero votes never pass.
// With anyway set the period is reported even for a failing tally.
func Compute(votes []VoteInput, maxPeriodDays int, anyway bool) Tally {
	t := Tally{Count: len(votes)}
	sum := 0
	for _, v := range votes {
		if v.Period > 0 {
			t.Agree++
		}
		p := v.Period
		if p > maxPeriodDays {
			p = maxPeriodDays
		}
		sum += p
	}
	switch {
	case t.Count >= 3:
		t.Passed = float64(t.Agree) >= float64(2*t.Count)/3.0
	case t.Count >= 1:
		t.Passed = t.Agree == t.Count
	}
	if t.Passed || anyway {
		if t.Count > 0 {
			t.Period = (sum + t.Count - 1) / t.Count
		}
	}
	return t
}

// ImmediatelyRejected reports whether the proposal should be terminated
// early: three or more disagreements have accumulated. Checked
// independently of Passed and takes precedence once it holds; in
// particular three votes with zero agreements both fails the tally and
// triggers early termination.
func ImmediatelyRejected(votes []VoteInput) bool {
	count, agree := 0, 0
	for _, v := range votes {
		count++
		if v.Period > 0 {
			agree++
		}
	}
	return count >= 3 && count-agree >= 3
}
