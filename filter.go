// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfkit

import (
	"compress/zlib"
	"fmt"
	"io"

	"github.com/foliumkit/pdfkit/logger"
)

// decodeFilterChain applies every filter named in v's /Filter entry, in
// order, passing each /DecodeParms entry to the matching filter. A stream
// with no /Filter is returned unchanged.
func decodeFilterChain(rd io.Reader, v Value) io.Reader {
	filter := v.Key("Filter")
	param := v.Key("DecodeParms")
	switch filter.Kind() {
	case Null:
		return rd
	case Name:
		return applyFilter(rd, filter.Name(), param)
	case Array:
		for i := 0; i < filter.Len(); i++ {
			rd = applyFilter(rd, filter.Index(i).Name(), param.Index(i))
		}
		return rd
	default:
		logger.Error(fmt.Sprintf("unsupported /Filter kind: %v", filter.Kind()))
		return &errorOnlyReader{fmt.Errorf("unsupported /Filter kind: %w", ErrUnsupportedFeature)}
	}
}

type errorOnlyReader struct{ err error }

func (e *errorOnlyReader) Read([]byte) (int, error) { return 0, e.err }

// applyFilter decodes rd through the single named filter. Only FlateDecode
// and ASCIIHexDecode are supported, per §4.5; any other name is rejected.
func applyFilter(rd io.Reader, filterName string, param Value) io.Reader {
	switch filterName {
	case "FlateDecode":
		zr, err := zlib.NewReader(rd)
		if err != nil {
			logger.Error(fmt.Sprintf("FlateDecode: %v", err))
			return &errorOnlyReader{fmt.Errorf("FlateDecode: %v: %w", err, ErrInvalidObject)}
		}
		logger.Debug("filter: FlateDecode decoder initialized", true)
		return applyPredictor(zr, param)
	case "ASCIIHexDecode":
		return newASCIIHexReader(rd)
	default:
		logger.Error("unsupported filter " + filterName)
		return &errorOnlyReader{fmt.Errorf("unsupported filter %q: %w", filterName, ErrUnsupportedFeature)}
	}
}

// applyPredictor wraps rd with a PNG predictor reconstructor when /Predictor
// names one of the supported tags (1 = no predictor, 10-15 = PNG family,
// of which only None(0), Sub(1), and Up(2) row filters are supported per
// §4.5; any other per-row tag, or predictor values 2-9 (TIFF), fails).
func applyPredictor(rd io.Reader, param Value) io.Reader {
	pred := param.Key("Predictor")
	if pred.Kind() == Null || pred.Int64() == 1 {
		return rd
	}
	if pred.Int64() < 10 {
		return &errorOnlyReader{fmt.Errorf("unsupported TIFF predictor %d: %w", pred.Int64(), ErrUnsupportedFeature)}
	}
	columns := param.Key("Columns").Int64()
	if columns <= 0 {
		columns = 1
	}
	colors := param.Key("Colors").Int64()
	if colors <= 0 {
		colors = 1
	}
	bpc := param.Key("BitsPerComponent").Int64()
	if bpc <= 0 {
		bpc = 8
	}
	bytesPerPixel := int64((colors*bpc + 7) / 8)
	if bytesPerPixel < 1 {
		bytesPerPixel = 1
	}
	rowBytes := (columns*colors*bpc + 7) / 8
	return &pngPredictorReader{
		r:    rd,
		bpp:  int(bytesPerPixel),
		hist: make([]byte, rowBytes),
		tmp:  make([]byte, 1+rowBytes),
	}
}

// pngPredictorReader undoes the per-row PNG predictor tag (§4.5: tags 0
// None, 1 Sub, 2 Up) applied to Columns-wide rows ahead of FlateDecode.
type pngPredictorReader struct {
	r    io.Reader
	bpp  int
	hist []byte
	tmp  []byte
	pend []byte
}

func (r *pngPredictorReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}
		if _, err := io.ReadFull(r.r, r.tmp); err != nil {
			return n, err
		}
		tag := r.tmp[0]
		row := r.tmp[1:]
		switch tag {
		case 0: // None
		case 1: // Sub
			for i := range row {
				var left byte
				if i >= r.bpp {
					left = row[i-r.bpp]
				}
				row[i] += left
			}
		case 2: // Up
			for i := range row {
				row[i] += r.hist[i]
			}
		default:
			return n, fmt.Errorf("unsupported PNG predictor row tag %d: %w", tag, ErrUnsupportedFeature)
		}
		copy(r.hist, row)
		r.pend = row
	}
	return n, nil
}

// asciiHexReader decodes ASCIIHexDecode data (§4.5): pairs of hex digits,
// ignoring embedded whitespace, terminated by '>', with an odd trailing
// digit padded with an implicit trailing zero.
type asciiHexReader struct {
	r    io.ByteReader
	done bool
}

func newASCIIHexReader(rd io.Reader) *asciiHexReader {
	br, ok := rd.(io.ByteReader)
	if !ok {
		br = newByteReaderAdapter(rd)
	}
	return &asciiHexReader{r: br}
}

func (h *asciiHexReader) Read(b []byte) (int, error) {
	if h.done {
		return 0, io.EOF
	}
	n := 0
	for n < len(b) {
		hi, ok := h.nextHexDigit()
		if !ok {
			h.done = true
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF
		}
		lo, ok := h.nextHexDigit()
		if !ok {
			// odd trailing digit: pad with a zero, per §4.5 scenario.
			b[n] = hi << 4
			n++
			h.done = true
			return n, nil
		}
		b[n] = hi<<4 | lo
		n++
	}
	return n, nil
}

func (h *asciiHexReader) nextHexDigit() (byte, bool) {
	for {
		c, err := h.r.ReadByte()
		if err != nil {
			return 0, false
		}
		if isPDFWhitespace(c) {
			continue
		}
		if c == '>' {
			return 0, false
		}
		switch {
		case c >= '0' && c <= '9':
			return c - '0', true
		case c >= 'a' && c <= 'f':
			return c - 'a' + 10, true
		case c >= 'A' && c <= 'F':
			return c - 'A' + 10, true
		default:
			return 0, false
		}
	}
}

type byteReaderAdapter struct {
	r   io.Reader
	buf [1]byte
}

func newByteReaderAdapter(r io.Reader) *byteReaderAdapter {
	return &byteReaderAdapter{r: r}
}

func (a *byteReaderAdapter) ReadByte() (byte, error) {
	_, err := io.ReadFull(a.r, a.buf[:])
	if err != nil {
		return 0, err
	}
	return a.buf[0], nil
}
