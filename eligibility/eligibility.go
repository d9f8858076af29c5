// Package eligibility decides whether a user may cast a vote right now.
package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/wikimods/sanctiond/platform"
)

type Checker struct {
	ident platform.Identity
	// length of the trailing window, in days, used for the account age,
	// recent activity and recent block rules
	verificationDays int
	minEdits         int
}

func NewChecker(ident platform.Identity, verificationDays, minEdits int) *Checker {
	return &Checker{
		ident:            ident,
		verificationDays: verificationDays,
		minEdits:         minEdits,
	}
}

// Result carries the decision and, when requested, one human-readable
// reason per failing rule. Ineligibility is a first-class outcome, never
// an error.
type Result struct {
	Eligible bool
	Reasons  []string
}

// Check evaluates every rule for the user as of the given instant. With
// withReasons set all rules run and every failure contributes a reason;
// without it evaluation stops at the first failure. The dual mode trades
// extra service calls for explainability only when a caller will actually
// show the reasons.
func (c *Checker) Check(ctx context.Context, userID int64, asOf time.Time, withReasons bool) (Result, error) {
	res := Result{}
	fail := func(reason string) bool {
		res.Reasons = append(res.Reasons, reason)
		return !withReasons
	}

	user, err := c.ident.UserByID(ctx, userID)
	if err != nil {
		return res, err
	}
	if user == nil || !user.Registered {
		// nothing else is checkable for an anonymous identity
		fail("only registered users may vote")
		return res, nil
	}

	registrationKnown := !user.Registration.IsZero()
	if !registrationKnown {
		if fail("registration date could not be determined") {
			return res, nil
		}
	}

	if !user.CanEdit {
		if fail("voting requires edit permission") {
			return res, nil
		}
	}

	window := time.Duration(c.verificationDays) * 24 * time.Hour
	windowStart := asOf.Add(-window)

	if registrationKnown && user.Registration.After(windowStart) {
		age := int(asOf.Sub(user.Registration).Hours() / 24)
		if fail(fmt.Sprintf("account age %d days is below the %d day verification period (registered %s)",
			age, c.verificationDays, user.Registration.UTC().Format("2006-01-02"))) {
			return res, nil
		}
	}

	edits, err := c.ident.CountEditsSince(ctx, userID, windowStart)
	if err != nil {
		return res, err
	}
	if edits < c.minEdits {
		if fail(fmt.Sprintf("%d edits in the last %d days, at least %d required",
			edits, c.verificationDays, c.minEdits)) {
			return res, nil
		}
	}

	if user.Blocked {
		if fail(fmt.Sprintf("currently blocked until %s", user.BlockExpiry.UTC().Format(time.RFC3339))) {
			return res, nil
		}
	}

	history, err := c.ident.BlockHistory(ctx, userID)
	if err != nil {
		return res, err
	}
	for _, b := range history {
		// a block counts as recent when it ended inside the window, even
		// if it has since been lifted
		if b.Expiry.After(windowStart) && !b.Expiry.After(asOf) {
			if fail(fmt.Sprintf("a block expired within the last %d days (on %s)",
				c.verificationDays, b.Expiry.UTC().Format("2006-01-02"))) {
				return res, nil
			}
			break
		}
	}

	res.Eligible = len(res.Reasons) == 0
	return res, nil
}
