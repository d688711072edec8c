package projects

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/content"
)

func date(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func slugs(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Slug
	}
	return out
}

func fixture() []content.Project {
	return []content.Project{
		{Slug: "unkey", Title: "unkey", Published: true, Date: date("2023-06-01")},
		{Slug: "planetfall", Title: "Planetfall", Published: true, Date: date("2023-01-10")},
		{Slug: "highstorm", Title: "Highstorm", Published: true, Date: date("2023-03-15")},
		{Slug: "access", Title: "@chronark/access", Published: true, Date: date("2022-05-01")},
		{Slug: "zod-bird", Title: "zod-bird", Published: true, Date: date("2023-04-20")},
		{Slug: "envshare", Title: "EnvShare", Published: true},
		{Slug: "draft", Title: "Draft", Published: false, Date: date("2024-01-01")},
		{Slug: "qstash", Title: "QStash", Published: true, Date: date("2022-09-09")},
	}
}

func TestBuild_Layout(t *testing.T) {
	views := map[string]int64{"unkey": 1500, "zod-bird": 12}
	l := Build(fixture(), views, []string{"unkey", "planetfall", "highstorm"})

	assert.Equal(t, []string{"unkey", "planetfall", "highstorm"}, slugs(l.Pinned))
	// undated first, then newest first
	assert.Equal(t, []string{"envshare", "zod-bird"}, slugs(l.Top))
	assert.Equal(t, []string{"qstash", "access"}, slugs(l.Rest))
	assert.Equal(t, 7, l.Len())

	assert.Equal(t, int64(1500), l.Pinned[0].Views)
	assert.Equal(t, "1.5K", l.Pinned[0].ViewsLabel)
	assert.Equal(t, "Jun 1, 2023", l.Pinned[0].DateLabel)
	assert.Equal(t, "2023-06-01T00:00:00Z", l.Pinned[0].DateISO)

	assert.Equal(t, int64(0), l.Pinned[1].Views, "missing counts are zero")
	assert.Equal(t, "0", l.Pinned[1].ViewsLabel)
	assert.Empty(t, l.Top[0].DateLabel, "undated project has no date label")
}

func TestBuild_ExcludesUnpublished(t *testing.T) {
	l := Build(fixture(), nil, []string{"draft"})

	assert.Empty(t, l.Pinned, "unpublished projects cannot be pinned")
	for _, c := range append(append(l.Pinned, l.Top...), l.Rest...) {
		assert.NotEqual(t, "draft", c.Slug)
	}
}

func TestBuild_MissingAndDuplicatePins(t *testing.T) {
	l := Build(fixture(), nil, []string{"nope", "highstorm", "highstorm"})
	assert.Equal(t, []string{"highstorm"}, slugs(l.Pinned))
	assert.Equal(t, 7, l.Len())
}

func TestBuild_Small(t *testing.T) {
	l := Build([]content.Project{{Slug: "one", Published: true}}, nil, nil)
	assert.Empty(t, l.Pinned)
	require.Len(t, l.Top, 1)
	assert.Empty(t, l.Rest)

	assert.Zero(t, Build(nil, nil, nil).Len())
}

func TestCompactNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1K"},
		{1200, "1.2K"},
		{1249, "1.2K"},
		{1250, "1.3K"},
		{1999, "2K"},
		{9960, "10K"},
		{12345, "12K"},
		{15500, "16K"},
		{999499, "999K"},
		{999999, "1M"},
		{3400000, "3.4M"},
		{1000000000, "1B"},
		{-1500, "-1.5K"},
		{math.MaxInt64, "9223372T"},
		{math.MinInt64, "-9223372T"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompactNumber(tt.in), "CompactNumber(%d)", tt.in)
	}
}
