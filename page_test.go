// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause
package pdfkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoPageDoc builds a Reader whose /Root → /Pages carries a /MediaBox that
// neither child /Page repeats, per §8 scenario 6. The second page sets its
// own /Rotate, which must win over any inherited value.
func twoPageDoc() *Reader {
	page1 := dict{name("Type"): name("Page")}
	page2 := dict{
		name("Type"):   name("Page"),
		name("Rotate"): int64(90),
	}
	pages := dict{
		name("Type"):     name("Pages"),
		name("MediaBox"): array{int64(0), int64(0), int64(612), int64(792)},
		name("Kids"):     array{page1, page2},
		name("Count"):    int64(2),
	}
	return &Reader{
		trailer: dict{
			name("Root"): dict{name("Pages"): pages},
		},
	}
}

func TestPages_Inheritance(t *testing.T) {
	r := twoPageDoc()
	pages := r.Pages()
	assert.Len(t, pages, 2)

	assert.Equal(t, "Page", pages[0].V.Key("Type").Name())
	assert.Equal(t, int64(0), int64(pages[0].MediaBox().LLX()))
	assert.Equal(t, int64(612), int64(pages[0].MediaBox().URX()))
	assert.Equal(t, int64(0), pages[0].Rotate())

	// page 2 carries its own /Rotate; it must not be overridden by the
	// inherited (absent) value from /Pages.
	assert.Equal(t, int64(90), pages[1].Rotate())
	// it still inherits /MediaBox since it has none of its own.
	assert.Equal(t, int64(792), int64(pages[1].MediaBox().URY()))
}

func TestPageCount_And_ZeroBasedAccess(t *testing.T) {
	r := twoPageDoc()
	assert.Equal(t, 2, r.PageCount())

	p0, err := r.Page(0)
	require.NoError(t, err)
	assert.False(t, p0.V.IsNull())
	assert.Equal(t, "Page", p0.V.Key("Type").Name())

	p1, err := r.Page(1)
	require.NoError(t, err)
	assert.False(t, p1.V.IsNull())
	assert.Equal(t, int64(90), p1.Rotate())

	// out of range, both directions
	p2, err := r.Page(2)
	require.NoError(t, err)
	assert.True(t, p2.V.IsNull())
	pNeg, err := r.Page(-1)
	require.NoError(t, err)
	assert.True(t, pNeg.V.IsNull())
}

func TestPages_NestedPagesNode(t *testing.T) {
	// /Pages -> /Pages (with its own /Resources) -> /Page, to exercise
	// merging across more than one level of ancestry.
	leaf := dict{name("Type"): name("Page")}
	innerRes := dict{name("Font"): dict{}}
	inner := dict{
		name("Type"):      name("Pages"),
		name("Resources"): innerRes,
		name("Kids"):       array{leaf},
		name("Count"):      int64(1),
	}
	outer := dict{
		name("Type"):     name("Pages"),
		name("MediaBox"): array{int64(0), int64(0), int64(200), int64(300)},
		name("Kids"):     array{inner},
		name("Count"):    int64(1),
	}
	r := &Reader{trailer: dict{name("Root"): dict{name("Pages"): outer}}}

	pages := r.Pages()
	assert.Len(t, pages, 1)
	assert.Equal(t, int64(200), int64(pages[0].MediaBox().URX()))
	assert.False(t, pages[0].Resources().IsNull())
}

func TestPage_RotateClockwise(t *testing.T) {
	p := Page{V: Value{data: dict{name("Type"): name("Page")}}}
	assert.Equal(t, int64(0), p.Rotate())

	assert.NoError(t, p.RotateClockwise(90))
	assert.Equal(t, int64(90), p.Rotate())

	assert.NoError(t, p.RotateClockwise(360))
	assert.Equal(t, int64(90), p.Rotate(), "a full turn leaves rotation unchanged")

	assert.NoError(t, p.RotateCounterClockwise(180))
	assert.Equal(t, int64(270), p.Rotate())
}

func TestPage_RotateRejectsNonMultipleOf90(t *testing.T) {
	p := Page{V: Value{data: dict{name("Type"): name("Page")}}}
	err := p.RotateClockwise(45)
	assert.ErrorIs(t, err, ErrInvalidObject)
}

func TestPage_RotateDoesNotTouchAncestor(t *testing.T) {
	pagesNode := dict{name("Type"): name("Pages"), name("Rotate"): int64(0)}
	page1 := dict{name("Type"): name("Page")}
	p := Page{V: Value{data: page1}, inherited: map[string]Value{"Rotate": {data: int64(0)}}}

	assert.NoError(t, p.RotateClockwise(90))
	assert.Equal(t, int64(90), p.Rotate())
	// the ancestor /Pages node's own /Rotate is untouched.
	assert.Equal(t, int64(0), pagesNode[name("Rotate")])
}

func TestRectangle_FallbackChains(t *testing.T) {
	mediaBox := array{int64(0), int64(0), int64(100), int64(100)}
	cropBox := array{int64(5), int64(5), int64(95), int64(95)}

	t.Run("MediaBox only", func(t *testing.T) {
		p := Page{V: Value{data: dict{name("MediaBox"): mediaBox}}}
		assert.False(t, p.MediaBox().IsNull())
		assert.False(t, p.CropBox().IsNull())
		assert.Equal(t, int64(0), int64(p.CropBox().LLX()), "CropBox falls back to MediaBox")
		assert.Equal(t, int64(0), int64(p.BleedBox().LLX()), "BleedBox falls back through CropBox to MediaBox")
		assert.Equal(t, int64(0), int64(p.TrimBox().LLX()))
		assert.Equal(t, int64(0), int64(p.ArtBox().LLX()))
	})

	t.Run("MediaBox and CropBox both present", func(t *testing.T) {
		p := Page{V: Value{data: dict{
			name("MediaBox"): mediaBox,
			name("CropBox"):  cropBox,
		}}}
		assert.Equal(t, int64(5), int64(p.CropBox().LLX()))
		assert.Equal(t, int64(5), int64(p.BleedBox().LLX()), "BleedBox prefers CropBox over MediaBox")
		assert.Equal(t, int64(5), int64(p.TrimBox().LLX()))
		assert.Equal(t, int64(5), int64(p.ArtBox().LLX()))
	})

	t.Run("no boxes at all", func(t *testing.T) {
		p := Page{V: Value{data: dict{name("Type"): name("Page")}}}
		assert.True(t, p.MediaBox().IsNull())
		assert.True(t, p.CropBox().IsNull())
		assert.True(t, p.BleedBox().IsNull())
	})
}
