// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfkit

import (
	"fmt"

	"github.com/foliumkit/pdfkit/logger"
)

// inheritableKeys are the /Pages attributes that propagate to descendant
// /Page nodes per §4.6: a page that does not carry its own value inherits
// the nearest ancestor's.
var inheritableKeys = [...]string{"Resources", "MediaBox", "CropBox", "Rotate"}

// A Page represents a single leaf /Page dictionary, with inheritable
// attributes resolved against the ancestor chain that produced it.
type Page struct {
	V         Value
	inherited map[string]Value
}

// Pages walks the tree rooted at /Root → /Pages and returns every leaf
// /Page, in the document order /Kids defines, with /Resources, /MediaBox,
// /CropBox, and /Rotate inherited from the nearest ancestor that carries
// them.
func (r *Reader) Pages() []Page {
	var out []Page
	flattenPages(r.Trailer().Key("Root").Key("Pages"), nil, &out)
	return out
}

// PageCount returns the number of leaf pages in the document.
func (r *Reader) PageCount() int {
	return len(r.Pages())
}

// Page returns the zero-based ith leaf page. If i is out of range, Page
// returns a Page whose V.IsNull(). Page access is where an encrypted
// document is rejected, per §6/§7: the trailer's /Encrypt is checked here
// rather than at Open, mirroring original_source/pyPdf/pdf.py's getPage,
// not its constructor.
func (r *Reader) Page(i int) (Page, error) {
	if r.trailer[name("Encrypt")] != nil {
		return Page{}, fmt.Errorf("trailer carries /Encrypt: %w", ErrEncryptedDocument)
	}
	pages := r.Pages()
	if r.parseErr != nil {
		return Page{}, r.parseErr
	}
	if i < 0 || i >= len(pages) {
		return Page{}, nil
	}
	return pages[i], nil
}

func flattenPages(node Value, inherited map[string]Value, out *[]Page) {
	if node.IsNull() {
		return
	}
	merged := make(map[string]Value, len(inherited)+len(inheritableKeys))
	for k, v := range inherited {
		merged[k] = v
	}
	for _, key := range inheritableKeys {
		if v := node.Key(key); !v.IsNull() {
			merged[key] = v
		}
	}
	switch node.Key("Type").Name() {
	case "Pages":
		kids := node.Key("Kids")
		logger.Debug(fmt.Sprintf("flattenPages: descending into /Pages %d %d R, %d kids", node.ptr.id, node.ptr.gen, kids.Len()), true)
		for i := 0; i < kids.Len(); i++ {
			flattenPages(kids.Index(i), merged, out)
		}
	case "Page":
		logger.Debug(fmt.Sprintf("flattenPages: leaf /Page %d %d R", node.ptr.id, node.ptr.gen), true)
		*out = append(*out, Page{V: node, inherited: merged})
	default:
		logger.Error(fmt.Sprintf("flattenPages: node %d %d R has /Type neither Pages nor Page", node.ptr.id, node.ptr.gen))
	}
}

// attr returns the page's own value for key if present, else the value
// inherited from the nearest ancestor that carried it, else a null Value.
func (p Page) attr(key string) Value {
	if v := p.V.Key(key); !v.IsNull() {
		return v
	}
	if v, ok := p.inherited[key]; ok {
		return v
	}
	return Value{}
}

// Resources returns the resources dictionary associated with the page,
// following the inheritance chain if the page does not carry its own.
func (p Page) Resources() Value {
	return p.attr("Resources")
}

// Rotate returns the page's effective /Rotate, in degrees clockwise,
// normalized into [0, 360). The default, absent any inherited or own
// value, is 0.
func (p Page) Rotate() int64 {
	v := p.attr("Rotate")
	if v.IsNull() {
		return 0
	}
	return ((v.Int64() % 360) + 360) % 360
}

// RotateClockwise rotates the page clockwise by angle degrees, which must
// be a multiple of 90. The result is normalized into [0, 360) and set
// directly on the page's own dictionary — never on an ancestor /Pages
// node, so sibling pages are unaffected.
func (p Page) RotateClockwise(angle int64) error {
	return p.setRotate(angle)
}

// RotateCounterClockwise rotates the page counter-clockwise by angle
// degrees, which must be a multiple of 90.
func (p Page) RotateCounterClockwise(angle int64) error {
	return p.setRotate(-angle)
}

func (p Page) setRotate(delta int64) error {
	if delta%90 != 0 {
		return fmt.Errorf("rotate angle %d is not a multiple of 90: %w", delta, ErrInvalidObject)
	}
	next := ((p.Rotate()+delta)%360 + 360) % 360
	d, ok := p.V.data.(dict)
	if !ok {
		return fmt.Errorf("page %d %d R is not a dictionary: %w", p.V.ptr.id, p.V.ptr.gen, ErrInvalidObject)
	}
	logger.Debug(fmt.Sprintf("setRotate: page %d %d R /Rotate %d -> %d", p.V.ptr.id, p.V.ptr.gen, p.Rotate(), next), true)
	d[name("Rotate")] = next
	return nil
}

// A Rectangle is the PDF sub-kind of Array holding exactly four numeric
// elements: lower-left X, lower-left Y, upper-right X, upper-right Y.
type Rectangle struct {
	V Value
}

// IsNull reports whether the rectangle is absent.
func (b Rectangle) IsNull() bool {
	return b.V.IsNull()
}

// LLX returns the rectangle's lower-left X coordinate.
func (b Rectangle) LLX() float64 { return b.V.Index(0).Float64() }

// LLY returns the rectangle's lower-left Y coordinate.
func (b Rectangle) LLY() float64 { return b.V.Index(1).Float64() }

// URX returns the rectangle's upper-right X coordinate.
func (b Rectangle) URX() float64 { return b.V.Index(2).Float64() }

// URY returns the rectangle's upper-right Y coordinate.
func (b Rectangle) URY() float64 { return b.V.Index(3).Float64() }

// MediaBox returns the page's /MediaBox. It has no fallback: a page with
// no inherited or own /MediaBox returns a null Rectangle.
func (p Page) MediaBox() Rectangle {
	return Rectangle{p.attr("MediaBox")}
}

// CropBox returns the page's /CropBox, falling back to /MediaBox when
// absent, per pyPdf.pdf.PageObject.
func (p Page) CropBox() Rectangle {
	if v := p.attr("CropBox"); !v.IsNull() {
		return Rectangle{v}
	}
	return p.MediaBox()
}

// BleedBox returns the page's /BleedBox, falling back to /CropBox then
// /MediaBox when absent.
func (p Page) BleedBox() Rectangle {
	if v := p.attr("BleedBox"); !v.IsNull() {
		return Rectangle{v}
	}
	return p.CropBox()
}

// TrimBox returns the page's /TrimBox, falling back to /CropBox then
// /MediaBox when absent.
func (p Page) TrimBox() Rectangle {
	if v := p.attr("TrimBox"); !v.IsNull() {
		return Rectangle{v}
	}
	return p.CropBox()
}

// ArtBox returns the page's /ArtBox, falling back to /CropBox then
// /MediaBox when absent.
func (p Page) ArtBox() Rectangle {
	if v := p.attr("ArtBox"); !v.IsNull() {
		return Rectangle{v}
	}
	return p.CropBox()
}
