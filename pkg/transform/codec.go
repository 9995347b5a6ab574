package transform

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strings"

	kio "github.com/flanglet/kanzi-go/v2/io"
)

const (
	kanziTransform = "EXE+RLT+TEXT+UTF"
	kanziEntropy   = "TPAQX"
	kanziBlockSize = 4 * 1024 * 1024
	kanziJobs      = 1
)

var (
	ErrUnknownCodec = errors.New("unknown codec")
)

// Codec selects the lossless compression used for a payload.
// The numeric values are embedded in payload headers, so they must remain stable.
type Codec uint8

const (
	CodecZlib Codec = iota + 1
	CodecKanzi
)

// Codecs lists every supported Codec.
func Codecs() []Codec {
	return []Codec{CodecZlib, CodecKanzi}
}

// ParseCodec accepts a codec name as produced by Codec.String.
func ParseCodec(name string) (Codec, error) {
	for _, c := range Codecs() {
		if strings.EqualFold(strings.TrimSpace(name), c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: '%s'", ErrUnknownCodec, name)
}

func (c Codec) String() string {
	switch c {
	case CodecZlib:
		return "zlib"
	case CodecKanzi:
		return "kanzi"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

func (c Codec) valid() bool {
	return c == CodecZlib || c == CodecKanzi
}

func (c Codec) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch c {
	case CodecZlib:
		w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case CodecKanzi:
		w, err := kio.NewWriterWithCtx(nopWriteCloser{&buf}, kanziWriterContext())
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, c)
	}
	return buf.Bytes(), nil
}

func (c Codec) decompress(data []byte) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch c {
	case CodecZlib:
		r, err = zlib.NewReader(bytes.NewReader(data))
	case CodecKanzi:
		r, err = kio.NewReaderWithCtx(io.NopCloser(bytes.NewReader(data)), kanziReaderContext())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, c)
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()
	return io.ReadAll(r)
}

// kanziWriterContext configures a kanzi writer by name, so the entropy and transform settings can't be swapped.
// kanzi type asserts these values, so the numeric settings must be uint.
func kanziWriterContext() map[string]any {
	return map[string]any{
		"entropy":   kanziEntropy,
		"transform": kanziTransform,
		"blockSize": uint(kanziBlockSize),
		"jobs":      uint(kanziJobs),
		"checksum":  true,
	}
}

// kanziReaderContext is filled in with the stream's settings as its header is read.
func kanziReaderContext() map[string]any {
	return map[string]any{
		"jobs": uint(kanziJobs),
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
