package stub

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"testing"

	"github.com/saylorsolutions/stubpack/internal/testbin"
	"github.com/saylorsolutions/stubpack/pkg/format"
	"github.com/saylorsolutions/stubpack/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealPayload(t *testing.T, raw []byte, codec transform.Codec) ([]byte, transform.KeyMaterial, transform.Header) {
	t.Helper()
	frame, err := transform.Compress(raw, codec, format.Classify(raw).Kind)
	require.NoError(t, err)
	hdr, err := transform.ReadHeader(frame)
	require.NoError(t, err)
	km, err := transform.GenerateKeyMaterial()
	require.NoError(t, err)
	sealed, err := transform.Encrypt(frame, km)
	require.NoError(t, err)
	return sealed, km, hdr
}

// literalBytes finds the package level []byte variable with the given name and decodes its elements.
func literalBytes(t *testing.T, file *ast.File, name string) []byte {
	t.Helper()
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			continue
		}
		for _, spec := range gen.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, ident := range vs.Names {
				if ident.Name != name {
					continue
				}
				lit, ok := vs.Values[i].(*ast.CompositeLit)
				require.True(t, ok, "%s should be a composite literal", name)
				out := make([]byte, 0, len(lit.Elts))
				for _, elt := range lit.Elts {
					v, err := strconv.ParseUint(elt.(*ast.BasicLit).Value, 0, 8)
					require.NoError(t, err)
					out = append(out, byte(v))
				}
				return out
			}
		}
	}
	t.Fatalf("variable %s not found", name)
	return nil
}

func importPaths(file *ast.File) []string {
	var paths []string
	for _, imp := range file.Imports {
		paths = append(paths, strings.Trim(imp.Path.Value, `"`))
	}
	return paths
}

func TestSynthesize(t *testing.T) {
	sealed, km, hdr := sealPayload(t, testbin.ELFExit(0), transform.CodecZlib)

	src, err := Synthesize(sealed, km, hdr)
	require.NoError(t, err)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, ProgramFile, src.Program, parser.ParseComments)
	require.NoError(t, err, "Generated program should be valid Go")
	assert.Equal(t, "main", file.Name.Name)
	assert.True(t, ast.IsGenerated(file))

	assert.Equal(t, km.Key[:], literalBytes(t, file, "key"))
	assert.Equal(t, km.IV[:], literalBytes(t, file, "iv"))
	assert.Equal(t, sealed, literalBytes(t, file, "payload"))
	assert.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, literalBytes(t, file, "formatMagic"))

	imports := importPaths(file)
	assert.Contains(t, imports, "compress/zlib")
	assert.Contains(t, imports, "crypto/aes")
	assert.Contains(t, imports, "crypto/cipher")
	assert.NotContains(t, imports, "github.com/flanglet/kanzi-go/v2/io")
	assert.Contains(t, string(src.Program), `payloadName         = "payload"`)

	manifest := string(src.Manifest)
	assert.Contains(t, manifest, "module "+DefaultModule+"\n")
	assert.Contains(t, manifest, "go "+DefaultGoVersion+"\n")
	assert.NotContains(t, manifest, "require")

	files := src.Files()
	assert.Len(t, files, 2)
	assert.Equal(t, src.Program, files[ProgramFile])
	assert.Equal(t, src.Manifest, files[ManifestFile])
}

func TestSynthesize_Kanzi(t *testing.T) {
	sealed, km, hdr := sealPayload(t, testbin.PE(), transform.CodecKanzi)

	src, err := Synthesize(sealed, km, hdr, ModuleName("example.com/packed"), GoVersion("go1.22"))
	require.NoError(t, err)

	file, err := parser.ParseFile(token.NewFileSet(), ProgramFile, src.Program, 0)
	require.NoError(t, err)
	imports := importPaths(file)
	assert.Contains(t, imports, "github.com/flanglet/kanzi-go/v2/io")
	assert.NotContains(t, imports, "compress/zlib")
	assert.Equal(t, []byte("MZ"), literalBytes(t, file, "formatMagic"))
	assert.Contains(t, string(src.Program), `"payload.exe"`)
	assert.Contains(t, string(src.Program), `kio.NewReaderWithCtx(`)

	manifest := string(src.Manifest)
	assert.Contains(t, manifest, "module example.com/packed\n")
	assert.Contains(t, manifest, "go 1.22\n")
	assert.Contains(t, manifest, "require github.com/flanglet/kanzi-go/v2 "+KanziVersion+"\n")
}

func TestSynthesize_FreshKeys(t *testing.T) {
	raw := testbin.ELFExit(0)
	sealedA, kmA, hdrA := sealPayload(t, raw, transform.CodecZlib)
	sealedB, kmB, hdrB := sealPayload(t, raw, transform.CodecZlib)

	a, err := Synthesize(sealedA, kmA, hdrA)
	require.NoError(t, err)
	b, err := Synthesize(sealedB, kmB, hdrB)
	require.NoError(t, err)
	assert.NotEqual(t, a.Program, b.Program)
	assert.NotContains(t, string(b.Program), byteTable(kmA.Key[:]))
	assert.NotContains(t, string(a.Program), byteTable(kmB.Key[:]))
}

func TestSynthesize_Neg(t *testing.T) {
	sealed, km, hdr := sealPayload(t, testbin.ELFExit(0), transform.CodecZlib)

	_, err := Synthesize(nil, km, hdr)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad := hdr
	bad.Format = format.Unrecognized
	_, err = Synthesize(sealed, km, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = hdr
	bad.Codec = 0
	_, err = Synthesize(sealed, km, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Synthesize(sealed, km, hdr, ModuleName(" "))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = Synthesize(sealed, km, hdr, GoVersion(""))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestByteTable(t *testing.T) {
	assert.Equal(t, "", byteTable(nil))
	assert.Equal(t, "\t\t0x00, 0x0f, 0xff,\n", byteTable([]byte{0x00, 0x0f, 0xff}))

	data := make([]byte, bytesPerLine+1)
	lines := strings.Split(strings.TrimSuffix(byteTable(data), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "\t\t0x00,", lines[1])
	assert.Equal(t, "0x7f, 0x45", inlineBytes([]byte{0x7f, 'E'}))
}
