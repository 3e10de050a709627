// Package codec reads and writes the bir binary module format.
//
// A module file is a three byte header (magic 0xDE 0xBC and a version
// byte), five sections in fixed order, and a trailer of five section
// offsets:
//
//	header   DE BC 01
//	externs  count, sym[count]
//	data     len, bytes[len]
//	globals  count, global[count]
//	funcs    count, func[count]
//	strings  count, {len, bytes[len]}[count]
//	trailer  off(externs) off(data) off(globals) off(funcs) off(strings)
//
// Every integer is a little-endian u64 except tag bytes, which are a
// single byte. Every name in the first four sections is an index into the
// string table. The encoder interns strings in first-use order, so each
// distinct name occupies exactly one table entry.
//
// The encoder streams forward: it records the offset of each section as
// it starts writing it and appends the offsets as the trailer, so no
// section size has to be known in advance. The decoder reads the trailer
// backward from the end of the buffer, reads the string table first, then
// parses each section from its recorded offset. A section must end exactly
// where the next one begins, which makes any single corrupted offset
// detectable.
//
// Decode is strict. A bad header is a *FormatError; anything else that is
// wrong with the buffer is a *CorruptDataError naming the section. No
// partially decoded module is ever returned.
package codec
