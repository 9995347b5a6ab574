package transform

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc64"

	bin "github.com/saylorsolutions/binmap"
	"github.com/saylorsolutions/stubpack/pkg/format"
)

const (
	// FrameMagic is "STUBPAK1" read as a big endian integer.
	FrameMagic   uint64 = 0x5354554250414b31
	FrameVersion uint8  = 1
	// HeaderLen is the encoded size of Header.
	HeaderLen = 8 + 1 + 1 + 1 + 8 + 8
)

var (
	ErrInvalidFrame = errors.New("invalid payload frame")

	crcTable = crc64.MakeTable(crc64.ECMA)
)

// Header describes the compressed body that follows it in a payload frame.
type Header struct {
	Magic    uint64
	Version  uint8
	Codec    Codec
	Format   format.Kind
	Size     uint64
	Checksum uint64
}

func (h *Header) mapper() bin.Mapper {
	return bin.MapSequence(
		bin.Int(&h.Magic),
		bin.Byte(&h.Version),
		bin.Byte((*uint8)(&h.Codec)),
		bin.Byte((*uint8)(&h.Format)),
		bin.Int(&h.Size),
		bin.Int(&h.Checksum),
	)
}

// Checksum returns the CRC-64 (ECMA) checksum recorded in payload headers.
func Checksum(data []byte) uint64 {
	return crc64.Checksum(data, crcTable)
}

// Compress compresses raw with the given Codec and prefixes the result with a Header describing it.
func Compress(raw []byte, codec Codec, kind format.Kind) ([]byte, error) {
	if !codec.valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, codec)
	}
	body, err := codec.compress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compress payload with %s: %w", codec, err)
	}
	hdr := Header{
		Magic:    FrameMagic,
		Version:  FrameVersion,
		Codec:    codec,
		Format:   kind,
		Size:     uint64(len(raw)),
		Checksum: Checksum(raw),
	}
	var buf bytes.Buffer
	buf.Grow(HeaderLen + len(body))
	if err := hdr.mapper().Write(&buf, binary.BigEndian); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// ReadHeader decodes and validates the Header at the start of a frame.
func ReadHeader(frame []byte) (Header, error) {
	var hdr Header
	if len(frame) < HeaderLen {
		return hdr, fmt.Errorf("%w: %d bytes is too short to contain a header", ErrInvalidFrame, len(frame))
	}
	if err := hdr.mapper().Read(bytes.NewReader(frame[:HeaderLen]), binary.BigEndian); err != nil {
		return hdr, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	switch {
	case hdr.Magic != FrameMagic:
		return hdr, fmt.Errorf("%w: bad magic %#x", ErrInvalidFrame, hdr.Magic)
	case hdr.Version != FrameVersion:
		return hdr, fmt.Errorf("%w: unsupported version %d", ErrInvalidFrame, hdr.Version)
	case !hdr.Codec.valid():
		return hdr, fmt.Errorf("%w: %v", ErrInvalidFrame, hdr.Codec)
	}
	return hdr, nil
}

// Decompress reverses Compress, verifying the recovered bytes against the frame Header.
func Decompress(frame []byte) ([]byte, Header, error) {
	hdr, err := ReadHeader(frame)
	if err != nil {
		return nil, hdr, err
	}
	raw, err := hdr.Codec.decompress(frame[HeaderLen:])
	if err != nil {
		return nil, hdr, fmt.Errorf("%w: %s body: %v", ErrInvalidFrame, hdr.Codec, err)
	}
	if uint64(len(raw)) != hdr.Size {
		return nil, hdr, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidFrame, hdr.Size, len(raw))
	}
	if sum := Checksum(raw); sum != hdr.Checksum {
		return nil, hdr, fmt.Errorf("%w: checksum mismatch", ErrInvalidFrame)
	}
	return raw, hdr, nil
}
