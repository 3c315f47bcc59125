// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfkit

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/foliumkit/pdfkit/logger"
)

// A Writer assembles a new PDF document out of pages drawn from any number
// of source Readers. It maintains an ordered, 1-based object table and
// three well-known slots created at construction: Pages (the root /Pages
// node), Info, and Root (the /Catalog). Like Reader, a Writer is not safe
// for concurrent use by more than one goroutine; see §5.
type Writer struct {
	objects []interface{} // objects[i] is the object that will be written as id i+1
	pagesID uint32
	infoID  uint32
	rootID  uint32

	// foreign remaps a source Reader's (id,gen) to the local id that holds
	// its imported copy, so the same foreign object is never imported
	// twice and a cycle resolves to a forward reference instead of
	// recursing forever.
	foreign map[*Reader]map[objptr]uint32
}

// NewWriter returns an empty Writer with no pages.
func NewWriter() *Writer {
	w := &Writer{foreign: map[*Reader]map[objptr]uint32{}}
	w.pagesID = w.alloc(dict{
		name("Type"):  name("Pages"),
		name("Kids"):  array{},
		name("Count"): int64(0),
	})
	w.infoID = w.alloc(dict{})
	w.rootID = w.alloc(dict{
		name("Type"):  name("Catalog"),
		name("Pages"): w.ref(w.pagesID),
	})
	return w
}

func (w *Writer) alloc(obj interface{}) uint32 {
	w.objects = append(w.objects, obj)
	return uint32(len(w.objects))
}

func (w *Writer) ref(id uint32) objptr {
	return objptr{id: id, gen: 0}
}

// PageCount returns the number of pages currently in Pages["/Kids"].
func (w *Writer) PageCount() int {
	pages := w.objects[w.pagesID-1].(dict)
	kids, _ := pages[name("Kids")].(array)
	return len(kids)
}

// AddPage imports p — which may come from any Reader, including one whose
// handle the Writer has never seen before — and appends it to the page
// tree. It asserts p's /Type is /Page, bakes p's inherited attributes
// (§4.6) directly onto the copy since the written document has no ancestor
// /Pages node to inherit from, stamps /Parent to the Writer's own Pages
// node, and performs the reference sweep of §4.7 step 1-2 for this page's
// subgraph: every foreign IndirectRef it reaches is imported exactly once,
// and any direct (non-indirect) stream encountered along the way is
// hoisted into its own indirect object.
func (w *Writer) AddPage(p Page) error {
	d, ok := p.V.data.(dict)
	if !ok {
		return fmt.Errorf("addPage: page is not a dictionary: %w", ErrInvalidObject)
	}
	if d[name("Type")] != name("Page") {
		return fmt.Errorf("addPage: /Type is %v, not /Page: %w", d[name("Type")], ErrInvalidObject)
	}

	merged := make(dict, len(d)+len(p.inherited))
	for k, v := range d {
		merged[k] = v
	}
	for key, v := range p.inherited {
		if _, ok := merged[name(key)]; !ok {
			merged[name(key)] = v.data
		}
	}
	delete(merged, name("Parent"))

	// Reserve this page's local id and register it in the remap table
	// before recursing, the same way importRef does, so that a foreign
	// reference elsewhere in the graph that points back at this very page
	// (e.g. through /Annots rather than /Parent) resolves to the page
	// being added instead of importing a duplicate copy of it.
	id := w.alloc(nil)
	if p.V.r != nil {
		remap := w.foreign[p.V.r]
		if remap == nil {
			remap = map[objptr]uint32{}
			w.foreign[p.V.r] = remap
		}
		remap[p.V.ptr] = id
	}

	imported, err := w.importValue(p.V.r, merged)
	if err != nil {
		return fmt.Errorf("addPage: %w", err)
	}
	importedDict, ok := imported.(dict)
	if !ok {
		return fmt.Errorf("addPage: imported page is not a dictionary: %w", ErrInvalidObject)
	}
	importedDict[name("Parent")] = w.ref(w.pagesID)
	w.objects[id-1] = importedDict
	logger.Debug(fmt.Sprintf("addPage: imported page as %d 0 R", id), true)

	pages := w.objects[w.pagesID-1].(dict)
	kids, _ := pages[name("Kids")].(array)
	pages[name("Kids")] = append(kids, w.ref(id))
	count, _ := pages[name("Count")].(int64)
	pages[name("Count")] = count + 1
	return nil
}

// importValue recursively copies x — which belongs to src (nil if x can
// contain no foreign references, e.g. a page's own already-resolved
// inherited attributes) — replacing every foreign IndirectRef with a local
// one via importRef. Direct streams nested inside a dict or array are
// hoisted by importAndHoist, their caller.
func (w *Writer) importValue(src *Reader, x interface{}) (interface{}, error) {
	switch t := x.(type) {
	case nil, bool, int64, real, name, byteString, textString:
		return x, nil
	case objptr:
		ref, err := w.importRef(src, t)
		if err != nil {
			return nil, err
		}
		return ref, nil
	case dict:
		out := make(dict, len(t))
		for k, v := range t {
			imported, err := w.importAndHoist(src, v)
			if err != nil {
				return nil, err
			}
			out[k] = imported
		}
		return out, nil
	case array:
		out := make(array, len(t))
		for i, v := range t {
			imported, err := w.importAndHoist(src, v)
			if err != nil {
				return nil, err
			}
			out[i] = imported
		}
		return out, nil
	case stream:
		hdr := make(dict, len(t.hdr))
		for k, v := range t.hdr {
			imported, err := w.importAndHoist(src, v)
			if err != nil {
				return nil, err
			}
			hdr[k] = imported
		}
		raw, err := rawStreamBytes(src, t)
		if err != nil {
			return nil, fmt.Errorf("importing stream: %w", err)
		}
		return stream{hdr: hdr, raw: raw}, nil
	default:
		return nil, fmt.Errorf("importValue: unexpected type %T: %w", x, ErrInvalidObject)
	}
}

// importAndHoist imports x and, if the result is a direct stream (one that
// appeared as a dictionary value or array element rather than behind its
// own IndirectRef), hoists it into a new indirect object per §4.7 step 2.
func (w *Writer) importAndHoist(src *Reader, x interface{}) (interface{}, error) {
	imported, err := w.importValue(src, x)
	if err != nil {
		return nil, err
	}
	if strm, ok := imported.(stream); ok {
		id := w.alloc(strm)
		return w.ref(id), nil
	}
	return imported, nil
}

// importRef materialises the foreign object ptr (read through src) into a
// new local slot on first sight, recording the mapping in w.foreign before
// recursing so that a cycle (e.g. a page's own /Parent pointing back to an
// ancestor already being imported) resolves to the reserved forward
// reference instead of recursing forever.
func (w *Writer) importRef(src *Reader, ptr objptr) (objptr, error) {
	remap := w.foreign[src]
	if remap == nil {
		remap = map[objptr]uint32{}
		w.foreign[src] = remap
	}
	if id, ok := remap[ptr]; ok {
		return w.ref(id), nil
	}

	id := w.alloc(nil)
	remap[ptr] = id

	resolved := src.resolve(objptr{}, ptr)
	if src.parseErr != nil {
		return objptr{}, fmt.Errorf("importing %v: %w", ptr, src.parseErr)
	}
	imported, err := w.importValue(src, resolved.data)
	if err != nil {
		return objptr{}, err
	}
	w.objects[id-1] = imported
	return w.ref(id), nil
}

// rawStreamBytes returns the stream's still-filter-encoded payload
// unchanged — the Writer never re-decodes or re-compresses a copied
// stream, per §6 ("all content streams pass through unchanged").
func rawStreamBytes(r *Reader, s stream) ([]byte, error) {
	if s.raw != nil {
		return s.raw, nil
	}
	length, err := r.resolveStreamLength(s)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(io.NewSectionReader(r.f, s.offset, length), buf); err != nil {
		return nil, fmt.Errorf("reading raw stream bytes: %w", err)
	}
	return buf, nil
}

// Write serialises the document per §4.7 steps 3-5: the header, each
// object in id order, the xref table recording each object's exact byte
// offset, and the trailer.
func (w *Writer) Write(out io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.3\n")

	offsets := make([]int64, len(w.objects))
	for i, obj := range w.objects {
		id := uint32(i + 1)
		offsets[i] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n", id)
		if err := serializeObject(&buf, obj); err != nil {
			return err
		}
		buf.WriteString("\nendobj\n")
	}

	xrefOffset := int64(buf.Len())
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(w.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}

	trailer := dict{
		name("Size"): int64(len(w.objects) + 1),
		name("Root"): w.ref(w.rootID),
		name("Info"): w.ref(w.infoID),
	}
	buf.WriteString("trailer\n")
	if err := serializeObject(&buf, trailer); err != nil {
		return err
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	logger.Debug(fmt.Sprintf("write: emitted %d objects, %d bytes", len(w.objects), buf.Len()), true)
	_, err := out.Write(buf.Bytes())
	return err
}

// serializeObject writes x in PDF object syntax per §4.7's serialization
// rules: Names as their raw bytes, integers decimal, reals their preserved
// lexeme, literal strings preferring a PDFDocEncoding round-trip, and a
// UTF-16BE-BOM hex string where that round-trip fails.
func serializeObject(buf *bytes.Buffer, x interface{}) error {
	switch t := x.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int64:
		fmt.Fprintf(buf, "%d", t)
	case real:
		buf.WriteString(string(t))
	case name:
		buf.WriteByte('/')
		buf.WriteString(string(t))
	case objptr:
		fmt.Fprintf(buf, "%d %d R", t.id, t.gen)
	case byteString:
		buf.WriteByte('<')
		fmt.Fprintf(buf, "%x", []byte(t))
		buf.WriteByte('>')
	case textString:
		serializeTextString(buf, t)
	case array:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := serializeObject(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case dict:
		return serializeDict(buf, t)
	case stream:
		return serializeStream(buf, t)
	default:
		return fmt.Errorf("serializeObject: unexpected type %T: %w", x, ErrInvalidObject)
	}
	return nil
}

func serializeDict(buf *bytes.Buffer, d dict) error {
	buf.WriteString("<<")
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(" /")
		buf.WriteString(k)
		buf.WriteByte(' ')
		if err := serializeObject(buf, d[name(k)]); err != nil {
			return err
		}
	}
	buf.WriteString(" >>")
	return nil
}

func serializeStream(buf *bytes.Buffer, s stream) error {
	hdr := make(dict, len(s.hdr)+1)
	for k, v := range s.hdr {
		if k == name("Length") {
			continue
		}
		hdr[k] = v
	}
	hdr[name("Length")] = int64(len(s.raw))
	if err := serializeDict(buf, hdr); err != nil {
		return err
	}
	buf.WriteString("\nstream\n")
	buf.Write(s.raw)
	buf.WriteString("\nendstream")
	return nil
}

// serializeTextString prefers a PDFDocEncoding round-trip; if t.text
// cannot be represented in PDFDocEncoding, it falls back to a hex string
// carrying a UTF-16BE BOM.
func serializeTextString(buf *bytes.Buffer, t textString) {
	if raw, ok := pdfDocEncode(t.text); ok {
		serializeLiteralString(buf, raw)
		return
	}
	raw := utf16beEncode(t.text)
	buf.WriteByte('<')
	fmt.Fprintf(buf, "%x", raw)
	buf.WriteByte('>')
}

// serializeLiteralString wraps raw in "(...)", escaping every byte outside
// {space, A-Z, a-z} as a 3-digit octal escape per §4.7.
func serializeLiteralString(buf *bytes.Buffer, raw []byte) {
	buf.WriteByte('(')
	for _, b := range raw {
		if b == ' ' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') {
			buf.WriteByte(b)
			continue
		}
		fmt.Fprintf(buf, "\\%03o", b)
	}
	buf.WriteByte(')')
}
