package compute

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Encode serializes a into the flat byte layout the cache stores: a small
// header (channel count, width, height) followed by each channel's raw
// bytes in order. Channel names themselves aren't persisted — they're part
// of the tile's fingerprint, so a mismatch already fails validation before
// Decode would ever run against the wrong layout.
//
// Arbitrary pixel bit depth is out of scope here (disk format is external
// per the library's own scope boundary); this assumes one byte per pixel
// per channel, matching 8-bit imagery.
func Encode(a Array) ([]byte, error) {
	if len(a.Data) != len(a.Channels) {
		return nil, errors.Errorf("compute: array has %d channels but %d data planes", len(a.Channels), len(a.Data))
	}
	planeLen := a.Width * a.Height
	buf := make([]byte, 12, 12+planeLen*len(a.Data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(a.Channels)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(a.Width))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(a.Height))
	for _, plane := range a.Data {
		if len(plane) != planeLen {
			return nil, errors.Errorf("compute: channel plane has %d bytes, want %d for %dx%d", len(plane), planeLen, a.Width, a.Height)
		}
		buf = append(buf, plane...)
	}
	return buf, nil
}

// Decode is Encode's inverse. channels supplies the names Decode can't
// recover from the byte layout itself.
func Decode(buf []byte, channels []string) (Array, error) {
	if len(buf) < 12 {
		return Array{}, errors.New("compute: buffer too short to contain an array header")
	}
	n := int(binary.LittleEndian.Uint32(buf[0:4]))
	w := int(binary.LittleEndian.Uint32(buf[4:8]))
	h := int(binary.LittleEndian.Uint32(buf[8:12]))
	if n != len(channels) {
		return Array{}, errors.Errorf("compute: buffer declares %d channels, caller expected %d", n, len(channels))
	}
	planeLen := w * h
	want := 12 + planeLen*n
	if len(buf) != want {
		return Array{}, errors.Errorf("compute: buffer is %d bytes, want %d for %dx%d x%d channels", len(buf), want, w, h, n)
	}
	data := make([][]byte, n)
	off := 12
	for i := range data {
		data[i] = buf[off : off+planeLen]
		off += planeLen
	}
	return Array{Channels: channels, Width: w, Height: h, Data: data}, nil
}
