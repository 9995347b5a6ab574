package stub

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/saylorsolutions/stubpack/pkg/format"
	"github.com/saylorsolutions/stubpack/pkg/transform"
)

const (
	ProgramFile  = "main.go"
	ManifestFile = "go.mod"

	DefaultModule    = "stubpack.local/stub"
	DefaultGoVersion = "1.21"
	// KanziVersion is the kanzi-go release required by stubs that decompress with the kanzi codec.
	KanziVersion = "v2.3.0"

	bytesPerLine = 16
	hexDigits    = "0123456789abcdef"
)

var (
	ErrInvalidInput = errors.New("unable to synthesize stub")

	//go:embed stub.go.tmpl
	programText     string
	programTemplate = template.Must(template.New("program").Parse(programText))

	//go:embed go.mod.tmpl
	manifestText     string
	manifestTemplate = template.Must(template.New("manifest").Parse(manifestText))
)

// Params is the data rendered into the stub templates.
type Params struct {
	Module       string
	GoVersion    string
	KanziVersion string
	Kanzi        bool

	FrameMagic   uint64
	FrameVersion uint8
	HeaderLen    int
	CodecID      uint8
	FormatID     uint8
	FormatMagic  string
	PayloadName  string

	Key  string
	IV   string
	Data string
}

// ParamOpt operates on Params in a standard and predictable way, and is used in Synthesize.
// If any ParamOpt returns an error, then synthesis ceases and the error is returned.
type ParamOpt = func(params *Params) error

// ModuleName sets the module path declared in the stub's go.mod.
func ModuleName(name string) ParamOpt {
	name = strings.TrimSpace(name)
	return func(params *Params) error {
		if len(name) == 0 {
			return fmt.Errorf("%w: empty module name", ErrInvalidInput)
		}
		params.Module = name
		return nil
	}
}

// GoVersion sets the go directive of the stub's go.mod.
func GoVersion(version string) ParamOpt {
	version = strings.TrimPrefix(strings.TrimSpace(version), "go")
	return func(params *Params) error {
		if len(version) == 0 {
			return fmt.Errorf("%w: empty Go version", ErrInvalidInput)
		}
		params.GoVersion = version
		return nil
	}
}

// Source is a synthesized stub program and its build manifest.
type Source struct {
	Program  []byte
	Manifest []byte
}

// Files maps the file names the stub must be built from to their contents.
func (s *Source) Files() map[string][]byte {
	return map[string][]byte{
		ProgramFile:  s.Program,
		ManifestFile: s.Manifest,
	}
}

// Synthesize renders a stub program that embeds the sealed payload and the KeyMaterial needed to open it.
// The header must be the one produced by transform.Compress for the sealed payload, since it determines how the stub decompresses and validates it.
func Synthesize(sealed []byte, km transform.KeyMaterial, hdr transform.Header, opts ...ParamOpt) (*Source, error) {
	if len(sealed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	magic := hdr.Format.Magic()
	if magic == nil {
		return nil, fmt.Errorf("%w: unsupported format %s", ErrInvalidInput, hdr.Format)
	}
	switch hdr.Codec {
	case transform.CodecZlib, transform.CodecKanzi:
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, hdr.Codec)
	}

	params := &Params{
		Module:       DefaultModule,
		GoVersion:    DefaultGoVersion,
		KanziVersion: KanziVersion,
		Kanzi:        hdr.Codec == transform.CodecKanzi,
		FrameMagic:   transform.FrameMagic,
		FrameVersion: transform.FrameVersion,
		HeaderLen:    transform.HeaderLen,
		CodecID:      uint8(hdr.Codec),
		FormatID:     uint8(hdr.Format),
		FormatMagic:  inlineBytes(magic),
		PayloadName:  payloadName(hdr.Format),
		Key:          byteTable(km.Key[:]),
		IV:           byteTable(km.IV[:]),
		Data:         byteTable(sealed),
	}
	for _, opt := range opts {
		if err := opt(params); err != nil {
			return nil, err
		}
	}

	var program, manifest bytes.Buffer
	if err := programTemplate.Execute(&program, params); err != nil {
		return nil, err
	}
	if err := manifestTemplate.Execute(&manifest, params); err != nil {
		return nil, err
	}
	manifest.WriteByte('\n')
	return &Source{
		Program:  program.Bytes(),
		Manifest: manifest.Bytes(),
	}, nil
}

func payloadName(kind format.Kind) string {
	if kind == format.PE {
		return "payload.exe"
	}
	return "payload"
}

// byteTable renders data as lines of Go byte literals, indented for a composite literal at package level.
func byteTable(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data)*6 + (len(data)/bytesPerLine+1)*3)
	for i, b := range data {
		if i%bytesPerLine == 0 {
			sb.WriteString("\t\t")
		}
		sb.WriteString("0x")
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0f])
		sb.WriteByte(',')
		if i%bytesPerLine == bytesPerLine-1 || i == len(data)-1 {
			sb.WriteByte('\n')
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func inlineBytes(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("0x%02x", b)
	}
	return strings.Join(parts, ", ")
}
