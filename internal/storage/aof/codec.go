package aof

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/yndnr/meshkv/pkg/crypto/adaptive"
)

// File format constants.
const (
	MagicBytes     = "MESHAOF\x01"
	MagicBytesSize = 8

	// headerSize is the size of frame header: length (4) + crc (4) = 8 bytes.
	headerSize = 8

	// MaxFrameSize bounds a single frame so a corrupted length cannot make
	// replay allocate unbounded memory.
	MaxFrameSize = 512 << 20
)

// FrameType tags how a frame payload is encoded.
type FrameType uint8

const (
	FrameTypePlain     FrameType = 1
	FrameTypeXChaCha20 FrameType = 2
	FrameTypeAESGCM    FrameType = 3
)

// Errors for AOF operations.
var (
	ErrCorruptedRecord  = errors.New("aof: corrupted record")
	ErrChecksumMismatch = errors.New("aof: checksum mismatch")
	ErrInvalidFrameType = errors.New("aof: invalid frame type")
	ErrInvalidMagic     = errors.New("aof: invalid magic bytes")
	ErrDecrypt          = errors.New("aof: cannot decrypt record (wrong encryption key?)")
	ErrClosed           = errors.New("aof: log is closed")
)

// frameAAD binds sealed payloads to the file format.
var frameAAD = []byte(MagicBytes)

func frameTypeFor(c adaptive.Cipher) FrameType {
	if c == nil {
		return FrameTypePlain
	}
	if c.Type() == adaptive.CipherAESGCM {
		return FrameTypeAESGCM
	}
	return FrameTypeXChaCha20
}

func encodeFrame(r *Record, c adaptive.Cipher) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("aof: record is nil")
	}

	payload := MarshalRecord(r)
	ft := frameTypeFor(c)
	if c != nil {
		sealed, err := c.Encrypt(payload, frameAAD)
		if err != nil {
			return nil, fmt.Errorf("aof: encrypt record: %w", err)
		}
		payload = sealed
	}

	// Length = CRC(4) + Type(1) + Payload.
	length := 4 + 1 + len(payload)
	if length > MaxFrameSize {
		return nil, fmt.Errorf("aof: record of %d bytes exceeds frame limit", length)
	}

	out := make([]byte, 4+length)
	binary.BigEndian.PutUint32(out[0:4], uint32(length))
	out[8] = byte(ft)
	copy(out[9:], payload)
	binary.BigEndian.PutUint32(out[4:8], crc32.ChecksumIEEE(out[8:]))
	return out, nil
}

// decodeFrame decodes [crc32:4][type:1][payload...]. ciphers maps sealed
// frame types to the cipher able to open them.
func decodeFrame(frame []byte, ciphers map[FrameType]adaptive.Cipher) (*Record, error) {
	if len(frame) < 5 {
		return nil, ErrCorruptedRecord
	}

	wantCRC := binary.BigEndian.Uint32(frame[:4])
	if crc32.ChecksumIEEE(frame[4:]) != wantCRC {
		return nil, ErrChecksumMismatch
	}

	ft := FrameType(frame[4])
	payload := frame[5:]

	switch ft {
	case FrameTypePlain:
	case FrameTypeXChaCha20, FrameTypeAESGCM:
		c := ciphers[ft]
		if c == nil {
			return nil, fmt.Errorf("%w: encrypted record but no encryption key configured", ErrDecrypt)
		}
		plain, err := c.Decrypt(payload, frameAAD)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
		payload = plain
	default:
		return nil, ErrInvalidFrameType
	}

	return UnmarshalRecord(payload)
}
