package diff

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shuliakovsky/peersync/pkg/catalog"
)

func cat(entries ...catalog.FileEntry) catalog.Catalog {
	c := catalog.Catalog{Entries: map[string]catalog.FileEntry{}}
	for _, e := range entries {
		c.Entries[e.Path] = e
	}
	return c
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	a := cat(
		catalog.FileEntry{Path: "x.txt", Hash: "h1", ModifiedAt: 10},
		catalog.FileEntry{Path: "y.txt", Hash: "h2", ModifiedAt: 20},
	)
	require.Empty(t, Diff(a, a))
}

func TestDiffMissing(t *testing.T) {
	a := cat(catalog.FileEntry{Path: "x.txt", Hash: "h1"})
	b := cat(catalog.FileEntry{Path: "y.txt", Hash: "h2"})

	got := Diff(a, b)
	require.Equal(t, []Intent{
		{Path: "x.txt", Direction: Push, Reason: ReasonMissing},
		{Path: "y.txt", Direction: Pull, Reason: ReasonMissing},
	}, got)
}

func TestDiffNewerWins(t *testing.T) {
	older := catalog.FileEntry{Path: "x.txt", Hash: "old", ModifiedAt: 100}
	newer := catalog.FileEntry{Path: "x.txt", Hash: "new", ModifiedAt: 200}

	got := Diff(cat(newer), cat(older))
	require.Equal(t, []Intent{{Path: "x.txt", Direction: Push, Reason: ReasonConflict}}, got)

	got = Diff(cat(older), cat(newer))
	require.Equal(t, []Intent{{Path: "x.txt", Direction: Pull, Reason: ReasonConflict}}, got)
}

func TestDiffTieBrokenByHash(t *testing.T) {
	aaa := catalog.FileEntry{Path: "x.txt", Hash: "aaa", ModifiedAt: 100}
	bbb := catalog.FileEntry{Path: "x.txt", Hash: "bbb", ModifiedAt: 100}

	// "bbb" wins no matter which side is local
	got := Diff(cat(bbb), cat(aaa))
	require.Equal(t, Push, got[0].Direction)

	got = Diff(cat(aaa), cat(bbb))
	require.Equal(t, Pull, got[0].Direction)
}

func TestDiffSymmetry(t *testing.T) {
	a := cat(
		catalog.FileEntry{Path: "only-a.txt", Hash: "h1"},
		catalog.FileEntry{Path: "both.txt", Hash: "newer", ModifiedAt: 2},
	)
	b := cat(
		catalog.FileEntry{Path: "only-b.txt", Hash: "h2"},
		catalog.FileEntry{Path: "both.txt", Hash: "older", ModifiedAt: 1},
	)

	ab := Diff(a, b)
	ba := Diff(b, a)
	require.Equal(t, len(ab), len(ba))

	flip := map[string]Direction{}
	for _, in := range ba {
		flip[in.Path] = in.Direction
	}
	for _, in := range ab {
		switch in.Direction {
		case Push:
			require.Equal(t, Pull, flip[in.Path], in.Path)
		case Pull:
			require.Equal(t, Push, flip[in.Path], in.Path)
		}
	}
}

func TestDiffOrderedByPath(t *testing.T) {
	a := cat(
		catalog.FileEntry{Path: "c.txt", Hash: "h"},
		catalog.FileEntry{Path: "a.txt", Hash: "h"},
		catalog.FileEntry{Path: "b.txt", Hash: "h"},
	)
	got := Diff(a, cat())
	require.Len(t, got, 3)
	require.Equal(t, "a.txt", got[0].Path)
	require.Equal(t, "b.txt", got[1].Path)
	require.Equal(t, "c.txt", got[2].Path)
}
