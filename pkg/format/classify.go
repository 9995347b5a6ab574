package format

import (
	"bytes"
	"debug/elf"
	"debug/pe"
	"encoding/binary"
	"fmt"
)

// Kind identifies an executable container format.
// The numeric values are embedded in packed payload headers, so they must remain stable.
type Kind uint8

const (
	Unrecognized Kind = iota
	ELF
	PE
)

func (k Kind) String() string {
	switch k {
	case ELF:
		return "ELF"
	case PE:
		return "PE"
	default:
		return "unrecognized"
	}
}

// Magic returns the leading bytes that every well-formed instance of the Kind starts with.
func (k Kind) Magic() []byte {
	switch k {
	case ELF:
		return []byte(elf.ELFMAG)
	case PE:
		return []byte("MZ")
	default:
		return nil
	}
}

// Verdict is the result of classifying a byte sequence.
type Verdict struct {
	Kind Kind
	// Machine is the container's own name for the target architecture, like EM_X86_64 or IMAGE_FILE_MACHINE_AMD64.
	Machine string
	// Bits is 32 or 64 for known kinds.
	Bits int
	// GOOS and GOARCH describe the platform the payload runs on, or are empty if it has no Go equivalent.
	GOOS   string
	GOARCH string
}

// Known reports whether the verdict names a supported executable format.
func (v Verdict) Known() bool {
	return v.Kind != Unrecognized
}

func (v Verdict) String() string {
	if !v.Known() {
		return v.Kind.String()
	}
	return fmt.Sprintf("%s %d-bit %s", v.Kind, v.Bits, v.Machine)
}

// Classify inspects data and reports which executable container format it is a well-formed instance of.
// Malformed, truncated, or unknown input yields a Verdict with Kind Unrecognized.
func Classify(data []byte) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{}
		}
	}()

	switch {
	case bytes.HasPrefix(data, ELF.Magic()):
		if v, ok := classifyELF(data); ok {
			return v
		}
	case bytes.HasPrefix(data, PE.Magic()):
		if v, ok := classifyPE(data); ok {
			return v
		}
	}
	return Verdict{}
}

func classifyELF(data []byte) (Verdict, bool) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return Verdict{}, false
	}
	size := uint64(len(data))
	for _, p := range f.Progs {
		if !within(p.Off, p.Filesz, size) {
			return Verdict{}, false
		}
	}
	for _, s := range f.Sections {
		if s.Type == elf.SHT_NOBITS || s.Type == elf.SHT_NULL {
			continue
		}
		if !within(s.Offset, s.FileSize, size) {
			return Verdict{}, false
		}
	}

	v := Verdict{
		Kind:    ELF,
		Machine: f.Machine.String(),
		Bits:    32,
		GOOS:    elfGOOS(f.OSABI),
		GOARCH:  elfGOARCH(f),
	}
	if f.Class == elf.ELFCLASS64 {
		v.Bits = 64
	}
	return v, true
}

func elfGOOS(abi elf.OSABI) string {
	switch abi {
	case elf.ELFOSABI_FREEBSD:
		return "freebsd"
	case elf.ELFOSABI_NETBSD:
		return "netbsd"
	case elf.ELFOSABI_OPENBSD:
		return "openbsd"
	case elf.ELFOSABI_SOLARIS:
		return "solaris"
	default:
		return "linux"
	}
}

func elfGOARCH(f *elf.File) string {
	little := f.ByteOrder == binary.LittleEndian
	switch f.Machine {
	case elf.EM_X86_64:
		return "amd64"
	case elf.EM_386:
		return "386"
	case elf.EM_AARCH64:
		return "arm64"
	case elf.EM_ARM:
		return "arm"
	case elf.EM_RISCV:
		if f.Class == elf.ELFCLASS64 {
			return "riscv64"
		}
	case elf.EM_PPC64:
		if little {
			return "ppc64le"
		}
		return "ppc64"
	case elf.EM_S390:
		return "s390x"
	case elf.EM_LOONGARCH:
		return "loong64"
	case elf.EM_MIPS:
		switch {
		case f.Class == elf.ELFCLASS64 && little:
			return "mips64le"
		case f.Class == elf.ELFCLASS64:
			return "mips64"
		case little:
			return "mipsle"
		default:
			return "mips"
		}
	}
	return ""
}

func classifyPE(data []byte) (Verdict, bool) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return Verdict{}, false
	}
	v := Verdict{
		Kind: PE,
		GOOS: "windows",
	}
	switch f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		v.Bits = 32
	case *pe.OptionalHeader64:
		v.Bits = 64
	default:
		// Object files have no optional header and are not runnable.
		return Verdict{}, false
	}
	size := uint64(len(data))
	for _, s := range f.Sections {
		if s.Offset == 0 {
			continue
		}
		if !within(uint64(s.Offset), uint64(s.Size), size) {
			return Verdict{}, false
		}
	}

	switch f.Machine {
	case pe.IMAGE_FILE_MACHINE_AMD64:
		v.Machine, v.GOARCH = "IMAGE_FILE_MACHINE_AMD64", "amd64"
	case pe.IMAGE_FILE_MACHINE_I386:
		v.Machine, v.GOARCH = "IMAGE_FILE_MACHINE_I386", "386"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		v.Machine, v.GOARCH = "IMAGE_FILE_MACHINE_ARM64", "arm64"
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		v.Machine, v.GOARCH = "IMAGE_FILE_MACHINE_ARMNT", "arm"
	default:
		v.Machine = fmt.Sprintf("%#x", f.Machine)
	}
	return v, true
}

func within(off, length, size uint64) bool {
	end := off + length
	return end >= off && end <= size
}
