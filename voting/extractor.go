package voting

import (
	"regexp"
	"strconv"
)

// ContentMode selects which encoding of reply content markers are matched
// against: the raw wikitext source or the rendered HTML.
type ContentMode int

const (
	ModeWikitext ContentMode = iota
	ModeRendered
)

type Kind int

const (
	NoVote Kind = iota
	Disagree
	Agree
)

// Result is the classification of a single reply.
type Result struct {
	Kind   Kind
	Period int
}

// CountedSuffix is what gets appended to a reply once it has been
// processed, so a later pass never counts it twice.
const (
	CountedWikitext = "{{counted}}"
	CountedRendered = `<span class="sanction-counted"></span>`
)

var (
	wikiCounted      = regexp.MustCompile(`\{\{\s*counted\s*\}\}`)
	wikiDisagree     = regexp.MustCompile(`\{\{\s*disagree\s*\}\}`)
	wikiAgreeDays    = regexp.MustCompile(`\{\{\s*agree\s*\|\s*(\d+)\s*\}\}`)
	wikiAgree        = regexp.MustCompile(`\{\{\s*agree\s*(\|[^}]*)?\}\}`)
	renderedCounted  = regexp.MustCompile(`class="[^"]*\bsanction-counted\b[^"]*"`)
	renderedDisagree = regexp.MustCompile(`class="[^"]*\bsanction-disagree\b[^"]*"`)
	renderedAgree    = regexp.MustCompile(`class="[^"]*\bsanction-agree\b[^"]*"`)
	renderedDays     = regexp.MustCompile(`\bsanction-agree\b[^>]*data-days="(\d+)"`)
)

// HasCountedMarker reports whether content already carries the processed
// marker for the given mode.
func HasCountedMarker(content string, mode ContentMode) bool {
	if mode == ModeRendered {
		return renderedCounted.MatchString(content)
	}
	return wikiCounted.MatchString(content)
}

// CountedMarker returns the marker to append for the given mode.
func CountedMarker(mode ContentMode) string {
	if mode == ModeRendered {
		return CountedRendered
	}
	return CountedWikitext
}

// Extract classifies one reply. First match wins: a counted marker makes the
// reply NoVote regardless of anything else, then an explicit disagreement,
// then agreement with a day count, then bare agreement (one day).
func Extract(content string, mode ContentMode) Result {
	if HasCountedMarker(content, mode) {
		return Result{Kind: NoVote}
	}
	if mode == ModeRendered {
		return extractRendered(content)
	}
	return extractWikitext(content)
}

func extractWikitext(content string) Result {
	if wikiDisagree.MatchString(content) {
		return Result{Kind: Disagree, Period: 0}
	}
	if m := wikiAgreeDays.FindStringSubmatch(content); m != nil {
		days, err := strconv.Atoi(m[1])
		if err != nil || days < 1 {
			days = 1
		}
		return Result{Kind: Agree, Period: days}
	}
	if wikiAgree.MatchString(content) {
		return Result{Kind: Agree, Period: 1}
	}
	return Result{Kind: NoVote}
}

func extractRendered(content string) Result {
	if renderedDisagree.MatchString(content) {
		return Result{Kind: Disagree, Period: 0}
	}
	if m := renderedDays.FindStringSubmatch(content); m != nil {
		days, err := strconv.Atoi(m[1])
		if err != nil || days < 1 {
			days = 1
		}
		return Result{Kind: Agree, Period: days}
	}
	if renderedAgree.MatchString(content) {
		return Result{Kind: Agree, Period: 1}
	}
	return Result{Kind: NoVote}
}
