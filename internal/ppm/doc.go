// Package ppm parses and writes binary Portable Pixel Map ("P6") images.
//
// The header parser is strict and byte-exact. It exists to find the exact
// offset where pixel data begins, so it never guesses or skips ahead.
//
// # Header Grammar
//
// Bytes are consumed left to right:
//   - Magic number: exactly "P6"
//   - Exactly one whitespace byte (space, tab, '\n', '\r')
//   - Width: optional leading whitespace, a digit run, one whitespace byte
//   - Height: same as width
//   - Max color value: same as width, value must be 1..255
//
// The byte after the max color value's terminating whitespace is the first
// pixel byte. Everything from there to the end of the stream is pixel data,
// taken verbatim. Header comments and the ASCII "P3" variant are rejected.
//
// # Usage Example
//
//	img, err := ppm.Load("carrier.ppm")
//	if err != nil {
//	    if ppm.IsBadHeader(err) {
//	        // malformed header
//	    }
//	    return err
//	}
//	fmt.Println(img.Header, img.DataOffset(), len(img.Pixels))
//
// Parsing a buffer that is already in memory:
//
//	hdr, offset, err := ppm.ParseHeader(data)
//
// FromImage and ToImage bridge to the standard image package so other
// lossless formats can be converted to and from P6.
//
// # Error Handling
//
// Every failure is a *HeaderError. ErrTypeBadHeader means the header is
// malformed or truncated; ErrTypeBadFile means the source could not be
// opened or read. No partial header is ever returned.
package ppm
