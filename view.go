package roarguard

import (
	"github.com/hupe1980/roarguard/codec"
	"github.com/hupe1980/roarguard/internal/mem"
	"github.com/hupe1980/roarguard/internal/mmap"
)

// View aliases data without copying it. Only the frozen formats are
// viewable; unsafe_frozen_croaring also requires data to start on a 32-byte
// boundary. Only the header is validated, so data must come from a trusted
// Serialize call.
//
// The view is frozen for good and keeps data referenced until it is closed.
// data must not be modified while the view is alive. Clone the view to get
// a mutable bitmap.
func View(data []byte, format codec.Format) (*Bitmap, error) {
	rb, err := codec.View(data, format)
	if err != nil {
		return nil, translateError(err)
	}
	b := &Bitmap{h: borrowedHandle(rb, data)}
	b.lock.Seal()
	return b, nil
}

// ViewAligned is View for data of unknown alignment. Misaligned input is
// copied into an aligned block the view then owns.
func ViewAligned(data []byte, format codec.Format) (*Bitmap, error) {
	aligned, copied, err := mem.EnsureAligned(data, mem.DefaultAlignment)
	if err != nil {
		return nil, translateError(err)
	}
	b, err := View(aligned, format)
	if err != nil {
		return nil, err
	}
	if copied {
		b.h.kind = Owned
	}
	return b, nil
}

// ViewFile maps the file at path read-only and views it. Mappings are page
// aligned, so both frozen formats work. The mapping is released by Close or,
// for a forgotten view, once the view is garbage collected.
func ViewFile(path string, format codec.Format) (*Bitmap, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	// Lookups touch containers out of order.
	_ = m.Advise(mmap.AccessRandom)
	data := m.Bytes()
	rb, err := codec.View(data, format)
	if err != nil {
		_ = m.Close()
		return nil, translateError(err)
	}
	b := &Bitmap{h: mappedHandle(rb, data, m)}
	b.lock.Seal()
	return b, nil
}
