package citations

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkifyRoundTrip(t *testing.T) {
	cits := []Citation{{Title: "Guide", URL: "/api/files/guide.pdf"}}
	segs := Linkify("See [1] and [2]", cits, "https://api.x", "T")

	require.Len(t, segs, 3)
	require.Equal(t, "See ", segs[0].Text)
	require.False(t, segs[0].IsLink())

	require.Equal(t, "[1]", segs[1].Text)
	require.True(t, segs[1].IsLink())
	require.Equal(t, "https://api.x/api/files/guide.pdf?token=T", segs[1].Href)

	// [2] has no deduped citation; it stays literal.
	require.Equal(t, " and [2]", segs[2].Text)
	require.False(t, segs[2].IsLink())
}

func TestLinkifyZeroMarkerStaysLiteral(t *testing.T) {
	segs := Linkify("nothing at [0]", []Citation{{URL: "/a"}}, apiBase, "")
	require.Len(t, segs, 1)
	require.Equal(t, "nothing at [0]", segs[0].Text)
}

func TestLinkifyNoMarkers(t *testing.T) {
	segs := Linkify("plain answer", nil, apiBase, "")
	require.Len(t, segs, 1)
	require.Equal(t, "plain answer", segs[0].Text)
}

func TestLinkifyAdjacentMarkers(t *testing.T) {
	cits := []Citation{{URL: "/api/files/a.pdf"}, {URL: "/api/files/b.pdf"}}
	segs := Linkify("[1][2]", cits, apiBase, "")
	require.Len(t, segs, 2)
	require.True(t, segs[0].IsLink())
	require.True(t, segs[1].IsLink())
	require.Equal(t, "[1]", segs[0].Text)
	require.Equal(t, "[2]", segs[1].Text)
}

func TestLinkifyUnresolvableCitationKeepsEmptyHref(t *testing.T) {
	segs := Linkify("check [1]", []Citation{{Title: "no url"}}, apiBase, "")
	require.Len(t, segs, 2)
	require.True(t, segs[1].IsLink())
	require.Equal(t, "", segs[1].Href)
}

func TestLinkifyHugeNumberStaysLiteral(t *testing.T) {
	segs := Linkify("see [99999999999999999999]", []Citation{{URL: "/a"}}, apiBase, "")
	require.Len(t, segs, 1)
	require.Equal(t, "see [99999999999999999999]", segs[0].Text)
}

func TestRenumberMarkersBothShapes(t *testing.T) {
	oldToNew := map[int]int{1: 1, 2: 1, 3: 2}
	out := RenumberMarkers("per [2], also (3) and [7]", oldToNew)
	require.Equal(t, "per [1], also (2) and [7]", out)
}

func TestRenumberMarkersEmptyMapIsNoop(t *testing.T) {
	require.Equal(t, "see [4]", RenumberMarkers("see [4]", nil))
}
