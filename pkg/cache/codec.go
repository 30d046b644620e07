package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"
)

// magic tags the tile container format; bumping cache.FormatVersion
// already forces new fingerprints, this guards against reading a file
// written by an incompatible binary.
var magic = [4]byte{'B', 'Z', 'T', '1'}

const headerLen = 4 + 64 + 64 + 8 // magic + hex(fingerprint) + hex(checksum) + payload length

// EncodeTile builds the on-disk container: a header embedding the tile's
// fingerprint and a checksum of the payload, followed by the payload
// itself. FileHasher's validation recomputes the payload checksum and
// compares it to the one stored here, resolving spec.md §6's "optional
// on-read checksum verification recomputes over the file bytes and
// compares to H" — see DESIGN.md for why H itself (identity-derived, not
// content-derived) is checked structurally rather than by content hash.
func EncodeTile(fingerprint string, payload []byte) ([]byte, error) {
	if len(fingerprint) != 64 {
		return nil, errors.Errorf("cache: fingerprint must be a 64-char hex sha256, got %d chars", len(fingerprint))
	}
	sum := sha256.Sum256(payload)
	checksum := hex.EncodeToString(sum[:])

	buf := make([]byte, headerLen+len(payload))
	copy(buf[0:4], magic[:])
	copy(buf[4:68], fingerprint)
	copy(buf[68:132], checksum)
	binary.LittleEndian.PutUint64(buf[132:140], uint64(len(payload)))
	copy(buf[headerLen:], payload)
	return buf, nil
}

type tileHeader struct {
	fingerprint string
	checksum    string
	payloadLen  uint64
}

func decodeHeader(buf []byte) (tileHeader, error) {
	if len(buf) < headerLen {
		return tileHeader{}, errors.New("cache: file too short to contain a tile header")
	}
	if [4]byte(buf[0:4]) != magic {
		return tileHeader{}, errors.New("cache: bad magic, not a buzzard tile file")
	}
	return tileHeader{
		fingerprint: string(buf[4:68]),
		checksum:    string(buf[68:132]),
		payloadLen:  binary.LittleEndian.Uint64(buf[132:140]),
	}, nil
}

// ValidateBytes checks a fully-read tile file against its expected
// fingerprint: the header's declared fingerprint must match, the declared
// payload length must match what's actually present, and recomputing the
// checksum over the payload must match the header's stored checksum.
func ValidateBytes(buf []byte, expectFingerprint string) (Status, []byte, error) {
	hdr, err := decodeHeader(buf)
	if err != nil {
		return StatusCorrupt, nil, nil
	}
	if hdr.fingerprint != expectFingerprint {
		return StatusCorrupt, nil, nil
	}
	payload := buf[headerLen:]
	if uint64(len(payload)) != hdr.payloadLen {
		return StatusCorrupt, nil, nil
	}
	sum := sha256.Sum256(payload)
	if hex.EncodeToString(sum[:]) != hdr.checksum {
		return StatusCorrupt, nil, nil
	}
	return StatusValid, payload, nil
}
