// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package pdfkit implements reading, inspecting, and writing of PDF files.
//
// # Overview
//
// PDF is Adobe's Portable Document Format, ubiquitous on the internet.
// A PDF document is a complex data format built on a fairly simple structure.
// This package exposes the simple structure along with wrappers for the page
// tree, so that splitting and recombining documents does not require
// interpreting content streams, fonts, or any other higher-level PDF
// feature.
//
// A PDF is a graph of Values, each of which has one of the following Kinds:
//
//	Null, Boolean, Integer, Real, Name, ByteString, TextString,
//	Array, Dictionary, Stream.
//
// The accessors on Value — Int64, Float64, Bool, Name, and so on — return a
// view of the data as the given type. When there is no appropriate view, the
// accessor returns a zero result, so traversal code does not need to check
// Kind() before every access. This can let mistakes go unreported; callers
// that need to distinguish "wrong kind" from "legitimately zero" should
// check Kind() explicitly.
package pdfkit

// BUG(rsc): There is no support for reading encrypted files beyond detecting
// and rejecting them; see ErrEncryptedDocument.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/foliumkit/pdfkit/logger"
)

// DebugOn mirrors the package-level verbose-diagnostics toggle used
// throughout the core; set it true to log scan/repair diagnostics that are
// otherwise too noisy for normal operation.
var DebugOn = false

// A Reader is a single PDF file open for reading. A Reader is not safe for
// concurrent use by more than one goroutine; callers that need to open many
// files concurrently should use Batch (see batch.go), which hands each
// goroutine its own Reader.
type Reader struct {
	f          io.ReaderAt
	closer     io.Closer
	end        int64
	xref       []xref
	trailer    dict
	trailerptr objptr
	cfg        *Config
	cache      map[objptr]interface{}
	dataCache  map[objptr][]byte

	// parseErr is the first fatal lexer error encountered while resolving an
	// indirect object, sticky across calls. A malformed object and a
	// legitimate PDF Null both resolve to a bare Go nil; parseErr is what
	// lets Page/Write distinguish the two instead of silently treating
	// corruption as an absent value.
	parseErr error
}

// recordParseErr records err as r's first fatal parse error, if one isn't
// already recorded.
func (r *Reader) recordParseErr(err error) {
	if r.parseErr == nil {
		r.parseErr = err
	}
}

type xref struct {
	ptr      objptr
	inStream bool
	stream   objptr
	offset   int64
}

// Open opens path and parses its cross-reference data using the default
// Config. The returned Reader owns the underlying file; call Close when
// done with it.
func Open(path string) (*Reader, error) {
	return OpenWithConfig(path, NewDefaultConfig())
}

// OpenWithConfig opens path under the given Config, which controls strict
// vs. best-effort xref repair (see Config.ParsingMode).
func OpenWithConfig(path string, cfg *Config) (*Reader, error) {
	logger.Debug(fmt.Sprintf("document: opening %s", path), true)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := NewReader(f, fi.Size(), cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Close releases the underlying file, if Reader opened it itself.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// NewReader parses cross-reference data from f, which holds size bytes of
// PDF content, using the given Config (nil selects NewDefaultConfig()).
func NewReader(f io.ReaderAt, size int64, cfg *Config) (*Reader, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	logger.Debug("checking header", true)
	if err := CheckHeader(f); err != nil {
		return nil, err
	}
	logger.Debug("checking end-of-file marker", true)
	if err := ValidateEOFMarker(f, size); err != nil {
		return nil, err
	}
	logger.Debug("locating startxref", true)
	startxref, err := FindStartXref(f, size)
	if err != nil {
		return nil, err
	}

	logger.Debug("reading xref table and trailer", true)
	r := &Reader{f: f, end: size, cfg: cfg, cache: make(map[objptr]interface{})}
	b := newBuffer(io.NewSectionReader(r.f, startxref, r.end-startxref), startxref)
	table, trailerptr, trailer, err := readXref(r, b)
	if err != nil {
		return nil, err
	}
	r.xref = table
	r.trailer = trailer
	r.trailerptr = trailerptr

	return r, nil
}

// CheckHeader validates the PDF header at the beginning of the file. It
// ensures the file starts with "%PDF-x.y" and the version is within 1.0-1.7
// or 2.0, tolerating leading garbage before the header token.
func CheckHeader(f io.ReaderAt) error {
	buf := make([]byte, 10)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading header: %w", ErrMalformedFile)
	}
	if n == 0 {
		return fmt.Errorf("empty file: %w", ErrMalformedFile)
	}
	buf = buf[:n]
	p := bytes.Index(buf, []byte("%PDF-"))
	if p < 0 {
		return fmt.Errorf("missing %%PDF- header: %w", ErrMalformedFile)
	}
	lineBuf := buf[p:]
	lineEnd := bytes.IndexAny(lineBuf, "\r\n")
	if lineEnd < 0 {
		lineEnd = len(lineBuf)
	}
	line := bytes.TrimRight(lineBuf[:lineEnd], " \t\x00")

	var major, minor int
	if _, err := fmt.Sscanf(string(line), "%%PDF-%d.%d", &major, &minor); err != nil {
		return fmt.Errorf("malformed version line %q: %w", line, ErrMalformedFile)
	}
	if !((major == 1 && minor >= 0 && minor <= 7) || (major == 2 && minor == 0)) {
		return fmt.Errorf("unsupported PDF version %d.%d: %w", major, minor, ErrUnsupportedFeature)
	}
	logger.Debug(fmt.Sprintf("header: PDF-%d.%d", major, minor), true)
	return nil
}

// ValidateEOFMarker checks the last chunk of the file for the "%%EOF"
// marker required at the end of every well-formed PDF.
func ValidateEOFMarker(f io.ReaderAt, size int64) error {
	const endChunk = 100
	end := size
	start := end - endChunk
	if start < 0 {
		start = 0
	}
	buf := make([]byte, end-start)
	f.ReadAt(buf, start)
	buf = bytes.TrimRight(buf, "\r\n\t ")
	if !bytes.HasSuffix(buf, []byte("%%EOF")) {
		return fmt.Errorf("missing trailing %%%%EOF: %w", ErrMalformedFile)
	}
	return nil
}

// FindStartXref locates and parses the "startxref" pointer near the end of
// the file, returning the byte offset of the first cross-reference section.
func FindStartXref(f io.ReaderAt, size int64) (int64, error) {
	const endChunk = 1024
	start := size - endChunk
	if start < 0 {
		start = 0
	}
	buf := make([]byte, size-start)
	if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading tail: %w", ErrMalformedFile)
	}
	i := findLastLine(buf, "startxref")
	if i < 0 {
		return 0, fmt.Errorf("missing startxref: %w", ErrMalformedFile)
	}
	pos := start + int64(i)
	b := newBuffer(io.NewSectionReader(f, pos, size-pos), pos)

	tok := b.readToken()
	if tok != keyword("startxref") {
		return 0, fmt.Errorf("malformed startxref keyword %v: %w", tok, ErrMalformedFile)
	}
	startxref, ok := b.readToken().(int64)
	if !ok {
		return 0, fmt.Errorf("startxref not followed by an integer: %w", ErrMalformedFile)
	}
	logger.Debug(fmt.Sprintf("xref: startxref=%d", startxref), true)
	return startxref, nil
}

// Trailer returns the file's trailer dictionary as a Value.
func (r *Reader) Trailer() Value {
	return Value{r, r.trailerptr, r.trailer}
}

func readXref(r *Reader, b *buffer) ([]xref, objptr, dict, error) {
	// Peek rather than read a token: readObject must see the whole
	// "id gen obj" header of an xref stream, not a pushed-back integer.
	if c, err := b.skipWhitespace(); err == nil && c >= '0' && c <= '9' {
		logger.Debug("found xref stream", true)
		return readXrefStream(r, b)
	}
	tok := b.readToken()
	if tok == keyword("xref") {
		logger.Debug("found classic xref table", true)
		return readXrefTable(r, b)
	}
	return nil, objptr{}, nil, fmt.Errorf("neither xref table nor xref stream at startxref: %w", ErrXref)
}

func readXrefStream(r *Reader, b *buffer) ([]xref, objptr, dict, error) {
	strmptr, strm, err := parseXrefStreamObject(b)
	if err != nil {
		return nil, objptr{}, nil, err
	}
	size, err := xrefSize(strm)
	if err != nil {
		return nil, objptr{}, nil, err
	}
	table := make([]xref, size)
	table, err = readXrefStreamData(r, strm, table, size)
	if err != nil {
		return nil, objptr{}, nil, err
	}
	table, trailer, err := mergePrevXrefStreams(r, strm, table, size)
	if err != nil {
		return nil, objptr{}, nil, err
	}
	return table, strmptr, trailer, nil
}

// parseXrefStreamObject reads one object from b and confirms it is an
// "id gen obj <<...>> stream" whose dictionary carries /Type /XRef.
func parseXrefStreamObject(b *buffer) (objptr, stream, error) {
	obj1 := b.readObject()
	if b.err != nil {
		return objptr{}, stream{}, fmt.Errorf("parsing xref stream object: %w", b.err)
	}
	od, ok := obj1.(objdef)
	if !ok {
		return objptr{}, stream{}, fmt.Errorf("expected an object definition, found %v: %w", objfmt(obj1), ErrXref)
	}
	strm, ok := od.obj.(stream)
	if !ok {
		return objptr{}, stream{}, fmt.Errorf("expected a cross-reference stream, found %v: %w", objfmt(od), ErrXref)
	}
	if strm.hdr["Type"] != name("XRef") {
		return objptr{}, stream{}, fmt.Errorf("xref stream missing /Type /XRef: %w", ErrXref)
	}
	strm.ptr = od.ptr
	return od.ptr, strm, nil
}

func xrefSize(strm stream) (int64, error) {
	size, ok := strm.hdr["Size"].(int64)
	if !ok {
		return 0, fmt.Errorf("xref stream missing /Size: %w", ErrXref)
	}
	return size, nil
}

// mergePrevXrefStreams follows the /Prev chain, merging each older stream's
// entries and header keys in first-seen-wins order (later streams are newer
// and already in table/merged; an older stream never overwrites an entry or
// header key already set).
func mergePrevXrefStreams(r *Reader, cur stream, table []xref, maxSize int64) ([]xref, dict, error) {
	merged := cur.hdr
	for prevoff := cur.hdr["Prev"]; prevoff != nil; {
		off, ok := prevoff.(int64)
		if !ok {
			return nil, nil, fmt.Errorf("/Prev is not an integer: %w", ErrXref)
		}
		b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
		_, prevStrm, err := parseXrefStreamObject(b)
		if err != nil {
			return nil, nil, err
		}
		prevoff = prevStrm.hdr["Prev"]
		psize, ok := prevStrm.hdr["Size"].(int64)
		if !ok {
			return nil, nil, fmt.Errorf("prev xref stream missing /Size: %w", ErrXref)
		}
		if psize > maxSize {
			return nil, nil, fmt.Errorf("prev xref stream larger than current: %w", ErrXref)
		}
		table, err = readXrefStreamData(r, prevStrm, table, psize)
		if err != nil {
			return nil, nil, err
		}
		merged = mergeDictIfEmpty(merged, prevStrm.hdr)
	}
	return table, merged, nil
}

// mergeDictIfEmpty copies keys from src into dst that dst does not already
// have, mirroring setIfEmpty's first-seen-wins rule for xref entries: dst
// holds the newest generation's keys and only gains what it lacks.
func mergeDictIfEmpty(dst, src dict) dict {
	if dst == nil {
		dst = make(dict, len(src))
	}
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
	return dst
}

func readXrefStreamData(r *Reader, strm stream, table []xref, size int64) ([]xref, error) {
	index, _ := strm.hdr["Index"].(array)
	if index == nil {
		index = array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("invalid /Index array %v: %w", objfmt(index), ErrXref)
	}

	ww, ok := strm.hdr["W"].(array)
	if !ok {
		return nil, fmt.Errorf("xref stream missing /W: %w", ErrXref)
	}
	var w []int
	for _, x := range ww {
		i, ok := x.(int64)
		if !ok || int64(int(i)) != i {
			return nil, fmt.Errorf("invalid /W entry %v: %w", objfmt(ww), ErrXref)
		}
		w = append(w, int(i))
	}
	if len(w) < 3 {
		return nil, fmt.Errorf("/W must have three widths: %w", ErrXref)
	}

	v := Value{r, strm.ptr, strm}
	wtotal := w[0] + w[1] + w[2]
	buf := make([]byte, wtotal)
	data := v.Reader()
	defer data.Close()

	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		n, ok2 := index[1].(int64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("malformed /Index pair: %w", ErrXref)
		}
		index = index[2:]
		for i := 0; i < int(n); i++ {
			if _, err := io.ReadFull(data, buf); err != nil {
				return nil, fmt.Errorf("reading xref stream row: %w", ErrXref)
			}
			v1 := decodeInt(buf[0:w[0]])
			if w[0] == 0 {
				v1 = 1
			}
			v2 := decodeInt(buf[w[0] : w[0]+w[1]])
			v3 := decodeInt(buf[w[0]+w[1] : w[0]+w[1]+w[2]])
			x := int(start) + i
			table = ensureLen(table, x+1)
			if table[x].ptr != (objptr{}) {
				continue
			}
			switch v1 {
			case 0:
				table[x] = xref{ptr: objptr{0, 65535}}
			case 1:
				table[x] = xref{ptr: objptr{uint32(x), uint16(v3)}, offset: int64(v2)}
			case 2:
				table[x] = xref{ptr: objptr{uint32(x), 0}, inStream: true, stream: objptr{uint32(v2), 0}, offset: int64(v3)}
			default:
				if DebugOn {
					logger.Error(fmt.Sprintf("unsupported xref entry type %d", v1))
				}
			}
		}
	}
	logger.Debug(fmt.Sprintf("xref stream: %d entries parsed", size), true)
	return table, nil
}

func decodeInt(b []byte) int {
	x := 0
	for _, c := range b {
		x = x<<8 | int(c)
	}
	return x
}

func readXrefTable(r *Reader, b *buffer) ([]xref, objptr, dict, error) {
	table, trailer, err := parseXrefTableAndTrailer(b, nil)
	if err != nil {
		return nil, objptr{}, nil, err
	}
	table, trailer, err = r.handleTrailerXRefStm(table, trailer)
	if err != nil {
		logger.Debug(fmt.Sprintf("XRefStm handling failed, continuing with Prev chain: %v", err), true)
	}
	table, trailer, err = resolvePrevXrefTables(r, trailer, table)
	if err != nil {
		return nil, objptr{}, nil, err
	}
	if err := validateTrailerSize(&table, trailer); err != nil {
		return nil, objptr{}, nil, err
	}
	return table, objptr{}, trailer, nil
}

func parseXrefTableAndTrailer(b *buffer, table []xref) ([]xref, dict, error) {
	table, err := readXrefTableData(b, table)
	if err != nil {
		return nil, nil, err
	}
	obj := b.readObject()
	if b.err != nil {
		return nil, nil, fmt.Errorf("parsing trailer: %w", b.err)
	}
	trailer, ok := obj.(dict)
	if !ok {
		return nil, nil, fmt.Errorf("xref table not followed by a trailer dictionary: %w", ErrXref)
	}
	return table, trailer, nil
}

// resolvePrevXrefTables follows the /Prev chain of classic xref tables,
// merging each older section's trailer keys in first-seen-wins order: the
// newest generation's trailer (passed in) always wins a conflicting key, and
// an older generation only fills in keys the newer ones lack.
func resolvePrevXrefTables(r *Reader, trailer dict, table []xref) ([]xref, dict, error) {
	merged := trailer
	for prevoff := trailer[name("Prev")]; prevoff != nil; {
		off, ok := prevoff.(int64)
		if !ok {
			return nil, nil, fmt.Errorf("/Prev is not an integer: %w", ErrXref)
		}
		b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
		tok := b.readToken()
		if tok != keyword("xref") {
			return nil, nil, fmt.Errorf("/Prev does not point at an xref table: %w", ErrXref)
		}
		var prevTrailer dict
		var err error
		table, prevTrailer, err = parseXrefTableAndTrailer(b, table)
		if err != nil {
			return nil, nil, err
		}
		table, prevTrailer, err = r.handleTrailerXRefStm(table, prevTrailer)
		if err != nil {
			logger.Debug(fmt.Sprintf("XRefStm handling failed in Prev chain, continuing: %v", err), true)
		}
		merged = mergeDictIfEmpty(merged, prevTrailer)
		prevoff = prevTrailer[name("Prev")]
	}
	return table, merged, nil
}

func validateTrailerSize(table *[]xref, trailer dict) error {
	size, ok := trailer[name("Size")].(int64)
	if !ok {
		return fmt.Errorf("trailer missing /Size: %w", ErrXref)
	}
	if size < int64(len(*table)) {
		*table = (*table)[:size]
	}
	return nil
}

func ensureLen[T any](s []T, n int) []T {
	if n <= len(s) {
		return s
	}
	if cap(s) < n {
		ns := make([]T, n)
		copy(ns, s)
		return ns
	}
	return s[:n]
}

func setIfEmpty(table *[]xref, x int, val xref) {
	if x < 0 {
		return
	}
	*table = ensureLen(*table, x+1)
	if (*table)[x].ptr == (objptr{}) {
		(*table)[x] = val
	}
}

func readXrefTableData(b *buffer, table []xref) ([]xref, error) {
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			break
		}
		start, ok1 := tok.(int64)
		count, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || count < 0 {
			return nil, fmt.Errorf("malformed xref subsection header: %w", ErrXref)
		}
		for i := 0; i < int(count); i++ {
			offTok := b.readToken()
			genTok := b.readToken()
			allocTok := b.readToken()

			off, okOff := offTok.(int64)
			gen, okGen := genTok.(int64)
			alloc, okAlloc := allocTok.(keyword)
			if !okOff || !okGen || !okAlloc {
				return nil, fmt.Errorf("malformed xref entry in subsection starting %d: %w", start, ErrXref)
			}

			idx := int(start) + i
			switch alloc {
			case keyword("n"):
				setIfEmpty(&table, idx, xref{ptr: objptr{uint32(idx), uint16(gen)}, offset: off})
			case keyword("f"):
				table = ensureLen(table, idx+1)
			default:
				return nil, fmt.Errorf("unexpected xref allocation flag %v: %w", alloc, ErrXref)
			}
		}
	}
	return table, nil
}

// mergeXrefTables merges src into dest, first-seen-wins: dest already holds
// entries from newer sections, so dest only gains entries it lacks.
func mergeXrefTables(dest []xref, src []xref) []xref {
	if len(src) > len(dest) {
		nd := make([]xref, len(src))
		copy(nd, dest)
		dest = nd
	}
	for i := 0; i < len(src); i++ {
		s := src[i]
		if s.ptr == (objptr{}) {
			continue
		}
		if dest[i].ptr == (objptr{}) {
			dest[i] = s
		}
	}
	return dest
}

// isLikelyObjectAt performs a lightweight check for whether an "id gen obj"
// header begins at off. Used only by the opt-in BestEffort repair path.
func (r *Reader) isLikelyObjectAt(off int64) bool {
	if off < 0 || off >= r.end {
		return false
	}
	buf := make([]byte, 64)
	n, err := r.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return false
	}
	if n == 0 {
		return false
	}
	s := strings.TrimLeft(string(buf[:n]), " \t\r\n")
	if objHeaderPattern.MatchString(s) {
		return true
	}
	return strings.HasPrefix(s, "<<") || strings.HasPrefix(s, "%PDF-")
}

var objHeaderPattern = regexp.MustCompile(`^\d+\s+\d+\s+obj\b`)

// scanForObjectAt searches a window around approx for "<id> <gen> obj" and
// returns the found offset, or -1. Used only by the opt-in BestEffort
// repair path; the window doubles per retry up to Config.MaxRetries.
func (r *Reader) scanForObjectAt(id uint32, gen uint16, approx int64, window int64) int64 {
	if approx < 0 {
		approx = 0
	}
	start := approx - window
	if start < 0 {
		start = 0
	}
	end := approx + window
	if end > r.end {
		end = r.end
	}
	size := end - start
	if size <= 0 {
		return -1
	}
	buf := make([]byte, size)
	n, err := r.f.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return -1
	}
	buf = buf[:n]
	re := regexp.MustCompile(fmt.Sprintf(`\b%d\s+%d\s+obj\b`, id, gen))
	loc := re.FindIndex(buf)
	if loc == nil {
		return -1
	}
	return start + int64(loc[0])
}

// validateAndRepairXrefEntries checks offsets in table and, only in
// BestEffort mode, tries to repair a bad offset with a growing-window scan.
func (r *Reader) validateAndRepairXrefEntries(table []xref) (repaired int, invalid int) {
	if r.cfg.ParsingMode != BestEffort {
		return 0, 0
	}
	for i := range table {
		ent := table[i]
		if ent.ptr == (objptr{}) || ent.offset == 0 {
			continue
		}
		if r.isLikelyObjectAt(ent.offset) {
			continue
		}
		window := int64(1024)
		found := int64(-1)
		for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
			found = r.scanForObjectAt(ent.ptr.id, ent.ptr.gen, ent.offset, window)
			if found >= 0 {
				break
			}
			window *= 2
		}
		if found >= 0 {
			table[i].offset = found
			repaired++
			continue
		}
		invalid++
	}
	return repaired, invalid
}

// handleTrailerXRefStm merges a hybrid-file /XRefStm (a xref stream
// accompanying a classic xref table, per §4.3) into table.
func (r *Reader) handleTrailerXRefStm(table []xref, trailer dict) ([]xref, dict, error) {
	xrefstm := trailer[name("XRefStm")]
	if xrefstm == nil {
		return table, trailer, nil
	}
	off, ok := xrefstm.(int64)
	if !ok {
		return table, trailer, fmt.Errorf("/XRefStm is not an integer: %w", ErrXref)
	}
	b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
	srcTable, _, hdr, err := readXrefStream(r, b)
	if err != nil {
		return table, trailer, fmt.Errorf("parsing /XRefStm at %d: %w", off, err)
	}
	repaired, invalid := r.validateAndRepairXrefEntries(srcTable)
	_ = repaired

	total := 0
	for _, e := range srcTable {
		if e.ptr != (objptr{}) {
			total++
		}
	}
	if total > 0 && float64(invalid)/float64(total) > 0.30 {
		return table, trailer, fmt.Errorf("/XRefStm at %d has too many invalid entries: %w", off, ErrXref)
	}
	table = mergeXrefTables(table, srcTable)
	if _, ok := hdr["Size"]; !ok {
		return table, trailer, fmt.Errorf("/XRefStm missing /Size: %w", ErrXref)
	}
	return table, trailer, nil
}

// findLastLine searches backwards in buf for the last occurrence of keyword
// s that is followed (after skipping PDF whitespace) by an EOL. Real-world
// producers sometimes pad "startxref" with extra whitespace before the
// newline; this tolerates that while still requiring a proper line ending.
func findLastLine(buf []byte, s string) int {
	bs := []byte(s)
	var indices []int
	for i := 0; ; {
		j := bytes.Index(buf[i:], bs)
		if j < 0 {
			break
		}
		indices = append(indices, i+j)
		i += j + 1
	}
	for k := len(indices) - 1; k >= 0; k-- {
		i := indices[k]
		j := skipWhitespaceBytes(buf, i+len(bs))
		if endsWithEOL(buf, i+len(bs), j) {
			return i
		}
	}
	return -1
}

func skipWhitespaceBytes(buf []byte, j int) int {
	for j < len(buf) && isPDFWhitespace(buf[j]) {
		j++
	}
	return j
}

func endsWithEOL(buf []byte, start, end int) bool {
	if end > start {
		last := buf[end-1]
		return last == '\n' || last == '\r'
	}
	return false
}

// A Value is a single PDF value, such as an integer, dictionary, or array.
// The zero Value is a PDF null (Kind() == Null, IsNull() == true).
type Value struct {
	r    *Reader
	ptr  objptr
	data interface{}
}

// IsNull reports whether the value is null. Equivalent to Kind() == Null.
func (v Value) IsNull() bool {
	return v.data == nil
}

// A ValueKind specifies the kind of data underlying a Value.
type ValueKind int

// The PDF value kinds, matching the object model's closed sum type.
const (
	Null ValueKind = iota
	Boolean
	Integer
	Real
	Name
	ByteString
	TextString
	Array
	Dictionary
	Stream
)

// Kind reports the kind of value underlying v.
func (v Value) Kind() ValueKind {
	switch v.data.(type) {
	default:
		return Null
	case bool:
		return Boolean
	case int64:
		return Integer
	case real:
		return Real
	case name:
		return Name
	case byteString:
		return ByteString
	case textString:
		return TextString
	case dict:
		return Dictionary
	case array:
		return Array
	case stream:
		return Stream
	}
}

// String returns a textual debug representation of v. It is not the
// accessor for TextString/ByteString values; see Text and RawBytes.
func (v Value) String() string {
	return objfmt(v.data)
}

func objfmt(x interface{}) string {
	switch x := x.(type) {
	default:
		return fmt.Sprint(x)
	case textString:
		return fmt.Sprintf("%q", x.text)
	case byteString:
		return fmt.Sprintf("%x", []byte(x))
	case name:
		return "/" + string(x)
	case real:
		return string(x)
	case dict:
		var keys []string
		for k := range x {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteString("<<")
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString("/")
			buf.WriteString(k)
			buf.WriteString(" ")
			buf.WriteString(objfmt(x[name(k)]))
		}
		buf.WriteString(">>")
		return buf.String()
	case array:
		var buf bytes.Buffer
		buf.WriteString("[")
		for i, elem := range x {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString("]")
		return buf.String()
	case stream:
		return fmt.Sprintf("%v@%d", objfmt(x.hdr), x.offset)
	case objptr:
		return fmt.Sprintf("%d %d R", x.id, x.gen)
	case objdef:
		return fmt.Sprintf("{%d %d obj}%v", x.ptr.id, x.ptr.gen, objfmt(x.obj))
	}
}

// Bool returns v's boolean value. If v.Kind() != Boolean, Bool returns false.
func (v Value) Bool() bool {
	x, _ := v.data.(bool)
	return x
}

// Int64 returns v's integer value. If v.Kind() != Integer, Int64 returns 0.
func (v Value) Int64() int64 {
	x, _ := v.data.(int64)
	return x
}

// Float64 returns v's numeric value as a float64, converting from Integer
// or parsing the preserved Real lexeme as needed. If v is neither Integer
// nor Real, Float64 returns 0.
func (v Value) Float64() float64 {
	switch x := v.data.(type) {
	case real:
		return x.float64()
	case int64:
		return float64(x)
	default:
		return 0
	}
}

// RealLexeme returns the exact decimal text that produced a Real value, as
// it appeared in the file (§3: Real preserves its original lexeme rather
// than round-tripping through binary floating point). If v.Kind() != Real,
// RealLexeme returns "".
func (v Value) RealLexeme() string {
	x, _ := v.data.(real)
	return string(x)
}

// Text returns v's TextString value as a decoded Go string. If v.Kind() !=
// TextString, Text returns "".
func (v Value) Text() string {
	x, ok := v.data.(textString)
	if !ok {
		return ""
	}
	return x.text
}

// RawBytes returns the original bytes underlying a ByteString or TextString
// value (the "original-bytes view", bit-exact including a UTF-16BE BOM
// where one was present). For any other Kind, RawBytes returns nil.
func (v Value) RawBytes() []byte {
	switch x := v.data.(type) {
	case byteString:
		return []byte(x)
	case textString:
		return x.raw
	default:
		return nil
	}
}

// Name returns v's name value without its leading slash. If v.Kind() !=
// Name, Name returns "".
func (v Value) Name() string {
	x, _ := v.data.(name)
	return string(x)
}

// Key returns the value associated with key in the dictionary v. If v is a
// stream, Key applies to the stream's header dictionary. If v.Kind() is
// neither Dictionary nor Stream, Key returns a null Value.
func (v Value) Key(key string) Value {
	x, ok := v.data.(dict)
	if !ok {
		strm, ok := v.data.(stream)
		if !ok {
			return Value{}
		}
		x = strm.hdr
	}
	return v.r.resolve(v.ptr, x[name(key)])
}

// Keys returns a sorted list of the keys in the dictionary v. If v is a
// stream, Keys applies to the stream's header dictionary.
func (v Value) Keys() []string {
	x, ok := v.data.(dict)
	if !ok {
		strm, ok := v.data.(stream)
		if !ok {
			return nil
		}
		x = strm.hdr
	}
	keys := []string{}
	for k := range x {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Index returns the i'th element of the array v. Out-of-range i or a
// non-Array v returns a null Value.
func (v Value) Index(i int) Value {
	x, ok := v.data.(array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	return v.r.resolve(v.ptr, x[i])
}

// Len returns the length of the array v. If v.Kind() != Array, Len returns 0.
func (v Value) Len() int {
	x, ok := v.data.(array)
	if !ok {
		return 0
	}
	return len(x)
}

// resolve dereferences x if it is an IndirectRef, consulting and populating
// r.cache so repeated resolution of the same (id, generation) is
// idempotent and never re-advances the underlying file cursor.
func (r *Reader) resolve(parent objptr, x interface{}) Value {
	if ptr, ok := x.(objptr); ok {
		if cached, ok := r.cache[ptr]; ok {
			return Value{r, ptr, cached}
		}
		if ptr.id >= uint32(len(r.xref)) {
			return Value{}
		}
		ref := r.xref[ptr.id]
		if ref.ptr != ptr || (!ref.inStream && ref.offset == 0) {
			return Value{}
		}
		var obj interface{}
		if ref.inStream {
			obj = r.resolveFromObjStm(parent, ptr, ref)
		} else {
			obj = r.resolveFromFile(ptr, ref)
		}
		r.cache[ptr] = obj
		x = obj
		parent = ptr
	}

	switch x.(type) {
	case nil, bool, int64, real, name, byteString, textString, dict, array, stream:
		return Value{r, parent, x}
	default:
		logger.Error(fmt.Sprintf("unexpected value type %T in resolve", x))
		return Value{}
	}
}

func (r *Reader) resolveFromFile(ptr objptr, ref xref) interface{} {
	b := newBuffer(io.NewSectionReader(r.f, ref.offset, r.end-ref.offset), ref.offset)
	obj := b.readObject()
	if b.err != nil {
		r.recordParseErr(fmt.Errorf("loading %v: %w", ptr, b.err))
		return nil
	}
	def, ok := obj.(objdef)
	if !ok {
		logger.Error(fmt.Sprintf("loading %v: found %T instead of an object definition", ptr, obj))
		return nil
	}
	if def.ptr != ptr {
		logger.Error(fmt.Sprintf("loading %v: found %v", ptr, def.ptr))
		return nil
	}
	if strm, ok := def.obj.(stream); ok {
		strm.ptr = ptr
		return strm
	}
	return def.obj
}

func (r *Reader) resolveFromObjStm(parent objptr, ptr objptr, ref xref) interface{} {
	strm := r.resolve(parent, ref.stream)
	for {
		if strm.Kind() != Stream || strm.Key("Type").Name() != "ObjStm" {
			logger.Error(fmt.Sprintf("xref entry for %v points into a non-ObjStm", ptr))
			return nil
		}
		n := int(strm.Key("N").Int64())
		first := strm.Key("First").Int64()
		if first == 0 {
			logger.Error("object stream missing /First")
			return nil
		}
		data := strm.Reader()
		b := newBuffer(data, 0)
		b.allowEOF = true
		for i := 0; i < n; i++ {
			id, _ := b.readToken().(int64)
			off, _ := b.readToken().(int64)
			if uint32(id) == ptr.id {
				b.seekForward(first + off)
				obj := b.readObject()
				data.Close()
				if b.err != nil {
					r.recordParseErr(fmt.Errorf("loading %v from object stream: %w", ptr, b.err))
					return nil
				}
				return obj
			}
		}
		data.Close()
		ext := strm.Key("Extends")
		if ext.Kind() != Stream {
			logger.Error(fmt.Sprintf("object %v not found in any object stream", ptr))
			return nil
		}
		strm = ext
	}
}

type errorReadCloser struct {
	err error
}

func (e *errorReadCloser) Read([]byte) (int, error) { return 0, e.err }
func (e *errorReadCloser) Close() error              { return e.err }

// Reader returns the filter-decoded data contained in the stream v. If
// v.Kind() != Stream, Reader returns a ReadCloser that fails every read.
func (v Value) Reader() io.ReadCloser {
	x, ok := v.data.(stream)
	if !ok {
		return &errorReadCloser{errors.New("stream not present")}
	}
	var rd io.Reader
	if x.raw != nil {
		rd = bytes.NewReader(x.raw)
	} else {
		length, err := v.r.resolveStreamLength(x)
		if err != nil {
			return &errorReadCloser{err}
		}
		rd = io.NewSectionReader(v.r.f, x.offset, length)
	}
	return io.NopCloser(decodeFilterChain(rd, v))
}

// Data returns the filter-decoded bytes of the stream v in full, memoizing
// the result against the stream's indirect reference (when v came from a
// Reader) so that repeated calls never re-run the filter chain. If
// v.Kind() != Stream, Data returns ErrInvalidObject.
func (v Value) Data() ([]byte, error) {
	if _, ok := v.data.(stream); !ok {
		return nil, fmt.Errorf("stream not present: %w", ErrInvalidObject)
	}
	if v.r != nil && v.r.dataCache != nil {
		if cached, ok := v.r.dataCache[v.ptr]; ok {
			return cached, nil
		}
	}
	rc := v.Reader()
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, err
	}
	if v.r != nil {
		if v.r.dataCache == nil {
			v.r.dataCache = map[objptr][]byte{}
		}
		v.r.dataCache[v.ptr] = data
	}
	return data, nil
}

// resolveStreamLength implements the ReportLab-compatible stream-length
// correction: some producers write a /Length one byte short of the actual
// gap to "endstream". If the declared length doesn't land on "endstream"
// (allowing for an EOL before the keyword) but length+1 does, the corrected
// length is used instead. This is the one documented retry; it is not
// gated by ParsingMode since it corrects a specific, well-known producer
// bug rather than attempting general repair. If neither length lands on
// "endstream", resolveStreamLength reports ErrInvalidObject instead of
// guessing.
func (r *Reader) resolveStreamLength(x stream) (int64, error) {
	v := Value{r, x.ptr, x.hdr}
	length := v.Key("Length").Int64()
	if r.endstreamFollows(x.offset, length) {
		return length, nil
	}
	if r.endstreamFollows(x.offset, length+1) {
		return length + 1, nil
	}
	return 0, fmt.Errorf("endstream marker not found after /Length %d at offset %d: %w", length, x.offset, ErrInvalidObject)
}

func (r *Reader) endstreamFollows(offset, length int64) bool {
	buf := make([]byte, 16)
	n, err := r.f.ReadAt(buf, offset+length)
	if err != nil && err != io.EOF {
		return false
	}
	s := strings.TrimLeft(string(buf[:n]), "\r\n \t")
	return strings.HasPrefix(s, "endstream")
}
