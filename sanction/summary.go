package sanction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wikimods/sanctiond/db"
	"github.com/wikimods/sanctiond/voting"
)

// RenderSummary produces the topic summary text shown above the
// discussion. It captures the tally, so it stays meaningful after the
// votes themselves are purged at finalization.
func RenderSummary(s *db.Sanction, t voting.Tally, now time.Time) string {
	var b strings.Builder
	measure := "block"
	if s.IsRename() {
		measure = "username change"
	}
	fmt.Fprintf(&b, "Sanction proposal against %s (%s).\n", s.TargetName, measure)
	fmt.Fprintf(&b, "Votes: %d total, %d in favor.\n", t.Count, t.Agree)

	switch {
	case s.Handled:
		if t.Passed {
			if s.IsRename() {
				b.WriteString("Result: passed, username change applied.\n")
			} else {
				fmt.Fprintf(&b, "Result: passed, %d day block applied.\n", t.Period)
			}
		} else {
			b.WriteString("Result: did not pass.\n")
		}
	case s.IsExpired(now):
		b.WriteString("Voting has closed; awaiting execution.\n")
	default:
		fmt.Fprintf(&b, "Voting is open until %s.\n", s.Expiry.UTC().Format(time.RFC1123))
		if t.Passed {
			if s.IsRename() {
				b.WriteString("Currently passing.\n")
			} else {
				fmt.Fprintf(&b, "Currently passing with a %d day block.\n", t.Period)
			}
		} else {
			b.WriteString("Currently not passing.\n")
		}
	}
	if s.Emergency {
		b.WriteString("An emergency provisional measure is in force.\n")
	}
	return b.String()
}

// updateSummary rewrites the topic summary. A failure here never blocks
// vote counting or the outcome decision; the summary is allowed to go
// transiently stale.
func (c *Controller) updateSummary(ctx context.Context, s *db.Sanction, t voting.Tally) {
	text := RenderSummary(s, t, c.Now())
	if err := c.discussion.EditSummary(ctx, s.TopicID, text); err != nil {
		log.Warn().Err(err).Str("sanction", s.ID.String()).Msg("failed to update topic summary")
	}
}
