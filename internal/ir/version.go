package ir

// Binary format constants shared by the encoder and decoder.
const (
	// FormatVersion is the only version the decoder accepts.
	FormatVersion byte = 0x01

	// LegacyFormatVersion is the pre-string-table layout (four sections,
	// four trailer offsets). It is recognised so that error messages can
	// name it, but it is never decoded.
	LegacyFormatVersion byte = 0x00

	// ToolVersion is the bir toolchain version.
	ToolVersion = "0.1.0"
)

// Magic is the two byte file signature.
var Magic = [2]byte{0xDE, 0xBC}

// WordSize is the size in bytes of every interpreter value.
const WordSize = 8
