// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPdfDocDecodeEncodeRoundTrip(t *testing.T) {
	raw := []byte("Hello, World!")
	text, ok := pdfDocDecode(raw)
	require.True(t, ok)
	assert.Equal(t, "Hello, World!", text)

	back, ok := pdfDocEncode(text)
	require.True(t, ok)
	assert.Equal(t, raw, back)
}

func TestPdfDocDecode_RejectsUndefinedLowBytes(t *testing.T) {
	_, ok := pdfDocDecode([]byte{0x05})
	assert.False(t, ok)
}

func TestPdfDocDecode_OverrideTable(t *testing.T) {
	text, ok := pdfDocDecode([]byte{0x80}) // bullet
	require.True(t, ok)
	assert.Equal(t, "•", text)

	back, ok := pdfDocEncode("•")
	require.True(t, ok)
	assert.Equal(t, []byte{0x80}, back)
}

func TestPdfDocEncode_RejectsUnrepresentableRune(t *testing.T) {
	_, ok := pdfDocEncode("日本語")
	assert.False(t, ok)
}

func TestUTF16BEDecodeEncodeRoundTrip(t *testing.T) {
	raw := utf16beEncode("hello")
	text, ok := utf16beDecode(raw)
	require.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestUTF16BEDecode_SurrogatePair(t *testing.T) {
	// U+1F600 (grinning face) requires a surrogate pair.
	raw := utf16beEncode("\U0001F600")
	text, ok := utf16beDecode(raw)
	require.True(t, ok)
	assert.Equal(t, "\U0001F600", text)
}

func TestUTF16BEDecode_RejectsMissingBOM(t *testing.T) {
	_, ok := utf16beDecode([]byte{0x00, 0x41})
	assert.False(t, ok)
}

func TestUTF16BEDecode_RejectsOddLength(t *testing.T) {
	_, ok := utf16beDecode([]byte{0xFE, 0xFF, 0x00})
	assert.False(t, ok)
}

func TestUTF16BEDecode_RejectsUnpairedSurrogate(t *testing.T) {
	_, ok := utf16beDecode([]byte{0xFE, 0xFF, 0xD8, 0x00})
	assert.False(t, ok)
}

func TestClassifyParsedString_UTF16BOMWins(t *testing.T) {
	got := classifyParsedString([]byte{0xFE, 0xFF, 0x00, 0x41})
	txt, ok := got.(textString)
	require.True(t, ok)
	assert.Equal(t, "A", txt.text)
	assert.Equal(t, provUTF16BE, txt.prov)
}

func TestClassifyParsedString_FallsBackToByteString(t *testing.T) {
	// A malformed UTF-16BE-BOM string (odd trailing byte) is neither valid
	// UTF-16 nor representable in PDFDocEncoding (0x00 is undefined).
	got := classifyParsedString([]byte{0xFE, 0xFF, 0x00})
	_, ok := got.(byteString)
	assert.True(t, ok)
}

func TestClassifyParsedString_PlainPDFDocEncoding(t *testing.T) {
	got := classifyParsedString([]byte("plain text"))
	txt, ok := got.(textString)
	require.True(t, ok)
	assert.Equal(t, "plain text", txt.text)
	assert.Equal(t, provPDFDocEncoding, txt.prov)
}
