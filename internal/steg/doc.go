// Package steg hides short ASCII messages in the least-significant bits of
// PPM pixel data.
//
// # Encoding
//
// Every message byte is spread over 8 consecutive carrier bytes. Carrier
// byte 0 holds the most-significant bit, carrier byte 7 the least. Only the
// LSB of each carrier byte changes. After the message a 0x00 terminator is
// embedded the same way, so a message of n characters needs (n+1)*8 bytes.
//
//	encoded, err := steg.Encode("hi", data, offset) // data = header + pixels
//	msg, err := steg.Decode(encoded[offset:])
//
// Encode is all-or-nothing: either the whole message and terminator fit or a
// capacity error is returned and nothing is produced. It always returns a
// fresh buffer.
//
// # Decoding
//
// Decode reads 8-byte chunks until it reconstructs the terminator. A value
// above 0x7f, or running out of bytes first, is reported as an error. A
// partial message is never returned.
package steg
