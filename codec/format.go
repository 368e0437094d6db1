package codec

import (
	"fmt"
	"strings"
)

// Format identifies a serialization layout.
type Format uint8

const (
	// Portable is the cross-implementation RoaringFormatSpec layout.
	Portable Format = iota + 1
	// CRoaring is the native layout: a plain uint32 list or a portable body,
	// whichever is smaller, behind a one-byte tag.
	CRoaring
	// FrozenCRoaring is the frozen layout read in place by View. Data must be
	// 32-byte aligned.
	FrozenCRoaring
	// FrozenPortable is the portable layout read in place by View.
	FrozenPortable
	// Uint32Array is a raw list of little-endian uint32 values.
	Uint32Array
	// CSV joins decimal values with commas.
	CSV
	// TSV joins decimal values with tabs.
	TSV
	// NSV joins decimal values with newlines.
	NSV
	// JSONArray writes a JSON array of numbers.
	JSONArray
)

var formatNames = [...]string{
	Portable:       "portable",
	CRoaring:       "croaring",
	FrozenCRoaring: "unsafe_frozen_croaring",
	FrozenPortable: "unsafe_frozen_portable",
	Uint32Array:    "uint32_array",
	CSV:            "comma_separated_values",
	TSV:            "tab_separated_values",
	NSV:            "newline_separated_values",
	JSONArray:      "json_array",
}

// String returns the format tag.
func (f Format) String() string {
	if f.Valid() {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f >= Portable && f <= JSONArray
}

// Text reports whether f is an encode-only text format.
func (f Format) Text() bool {
	return f >= CSV && f <= JSONArray
}

// Frozen reports whether f is one of the zero-copy layouts accepted by View.
func (f Format) Frozen() bool {
	return f == FrozenCRoaring || f == FrozenPortable
}

// RequiresCopy reports whether decoding f materializes fresh engine memory.
func (f Format) RequiresCopy() bool {
	return f.Valid() && !f.Frozen()
}

// ParseFormat resolves a format tag. Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f := Portable; f <= JSONArray; f++ {
		if formatNames[f] == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Formats lists every known format in tag order.
func Formats() []Format {
	out := make([]Format, 0, len(formatNames)-1)
	for f := Portable; f <= JSONArray; f++ {
		out = append(out, f)
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, uint8(f))
	}
	return []byte(formatNames[f]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
