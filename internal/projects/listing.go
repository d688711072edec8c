// Package projects arranges project records and view counts into the
// listing shown on /projects.
package projects

import (
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Zachkp/folio/internal/content"
)

const dateLabelLayout = "Jan 2, 2006"

// Card is one project tile.
type Card struct {
	content.Project
	Views      int64
	ViewsLabel string
	// DateLabel is empty when the project has no date; the view shows a
	// "coming soon" label instead.
	DateLabel string
	DateISO   string
}

// Listing is the page layout: pinned projects first, then the two most
// recent remaining projects, then everything else.
type Listing struct {
	Pinned []Card
	Top    []Card
	Rest   []Card
}

func (l Listing) Len() int {
	return len(l.Pinned) + len(l.Top) + len(l.Rest)
}

// Build arranges all projects. Pinned slugs keep their configured order and
// are skipped when missing or unpublished. The remaining published projects
// are sorted by date, newest first, with undated projects ahead of all dated
// ones.
func Build(all []content.Project, views map[string]int64, pinned []string) Listing {
	bySlug := make(map[string]content.Project, len(all))
	for _, p := range all {
		bySlug[p.Slug] = p
	}

	var l Listing
	taken := make(map[string]bool, len(pinned))
	for _, slug := range pinned {
		p, ok := bySlug[slug]
		if !ok || !p.Published || taken[slug] {
			continue
		}
		taken[slug] = true
		l.Pinned = append(l.Pinned, NewCard(p, views[slug]))
	}

	var rest []content.Project
	for _, p := range all {
		if p.Published && !taken[p.Slug] {
			rest = append(rest, p)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return sortKey(rest[i]) > sortKey(rest[j])
	})

	for i, p := range rest {
		card := NewCard(p, views[p.Slug])
		if i < 2 {
			l.Top = append(l.Top, card)
		} else {
			l.Rest = append(l.Rest, card)
		}
	}
	return l
}

func sortKey(p content.Project) int64 {
	if p.Date == nil {
		return math.MaxInt64
	}
	return p.Date.UnixMilli()
}

func NewCard(p content.Project, views int64) Card {
	c := Card{
		Project:    p,
		Views:      views,
		ViewsLabel: CompactNumber(views),
	}
	if p.Date != nil {
		c.DateLabel = p.Date.Format(dateLabelLayout)
		c.DateISO = p.Date.UTC().Format(time.RFC3339)
	}
	return c
}

var compactUnits = []struct {
	size   float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// CompactNumber formats n in short-scale compact notation: 999, 1.2K, 15K,
// 3.4M. One fraction digit is kept below 10 of a unit. Values round half away
// from zero, and a value that rounds up to 1000 of a unit moves to the next
// one, so 999_999 is 1M.
func CompactNumber(n int64) string {
	if n < 0 {
		if n == math.MinInt64 {
			n++
		}
		return "-" + CompactNumber(-n)
	}
	v := float64(n)
	for i, u := range compactUnits {
		if v < u.size {
			continue
		}
		scaled := roundCompact(v / u.size)
		if scaled >= 1000 && i > 0 {
			u = compactUnits[i-1]
			scaled = roundCompact(v / u.size)
		}
		return humanize.FtoaWithDigits(scaled, 1) + u.suffix
	}
	return humanize.FtoaWithDigits(v, 0)
}

func roundCompact(scaled float64) float64 {
	if scaled < 10 {
		return math.Round(scaled*10) / 10
	}
	return math.Round(scaled)
}
