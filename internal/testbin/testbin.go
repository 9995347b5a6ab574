// Package testbin builds tiny, well-formed executable images in memory for tests.
package testbin

import (
	"bytes"
	"debug/elf"
	"debug/pe"
	"encoding/binary"
)

const (
	elfBase       = 0x400000
	elfHeaderSize = 64
	elfProgSize   = 56
)

// ELFExit returns a static x86-64 Linux executable that immediately exits with the given status code.
func ELFExit(code uint8) []byte {
	text := []byte{
		0xb8, 0x3c, 0x00, 0x00, 0x00, // mov eax, 60 (exit)
		0xbf, code, 0x00, 0x00, 0x00, // mov edi, code
		0x0f, 0x05, // syscall
	}
	return ELF(elf.EM_X86_64, text)
}

// ELF returns a 64-bit little endian ET_EXEC image for the given machine, with a single PT_LOAD segment covering the whole file.
func ELF(machine elf.Machine, text []byte) []byte {
	var (
		buf   bytes.Buffer
		total = uint64(elfHeaderSize + elfProgSize + len(text))
	)
	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     elfBase + elfHeaderSize + elfProgSize,
		Phoff:     elfHeaderSize,
		Ehsize:    elfHeaderSize,
		Phentsize: elfProgSize,
		Phnum:     1,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr.Ident[elf.EI_OSABI] = byte(elf.ELFOSABI_NONE)

	prog := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Vaddr:  elfBase,
		Paddr:  elfBase,
		Filesz: total,
		Memsz:  total,
		Align:  0x1000,
	}
	_ = binary.Write(&buf, binary.LittleEndian, hdr)
	_ = binary.Write(&buf, binary.LittleEndian, prog)
	buf.Write(text)
	return buf.Bytes()
}

const (
	peSignatureOffset = 0x40
	peRawDataOffset   = 0x200
	peSectionSize     = 0x10
)

// PE returns a minimal PE32+ image for AMD64 with one .text section.
func PE() []byte {
	return PEMachine(pe.IMAGE_FILE_MACHINE_AMD64)
}

// PEMachine returns a minimal PE32+ image for the given machine with one .text section.
func PEMachine(machine uint16) []byte {
	var buf bytes.Buffer

	dos := make([]byte, peSignatureOffset)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3c:], peSignatureOffset)
	buf.Write(dos)
	buf.Write([]byte{'P', 'E', 0, 0})

	var opt pe.OptionalHeader64
	fileHdr := pe.FileHeader{
		Machine:              machine,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(opt)),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_LARGE_ADDRESS_AWARE,
	}
	opt = pe.OptionalHeader64{
		Magic:                 0x20b,
		SizeOfCode:            peSectionSize,
		AddressOfEntryPoint:   0x1000,
		BaseOfCode:            0x1000,
		ImageBase:             0x140000000,
		SectionAlignment:      0x1000,
		FileAlignment:         peRawDataOffset,
		MajorSubsystemVersion: 6,
		SizeOfImage:           0x2000,
		SizeOfHeaders:         peRawDataOffset,
		Subsystem:             pe.IMAGE_SUBSYSTEM_WINDOWS_CUI,
		NumberOfRvaAndSizes:   16,
	}
	section := pe.SectionHeader32{
		VirtualSize:      peSectionSize,
		VirtualAddress:   0x1000,
		SizeOfRawData:    peSectionSize,
		PointerToRawData: peRawDataOffset,
		Characteristics:  pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_EXECUTE | pe.IMAGE_SCN_MEM_READ,
	}
	copy(section.Name[:], ".text")

	_ = binary.Write(&buf, binary.LittleEndian, fileHdr)
	_ = binary.Write(&buf, binary.LittleEndian, opt)
	_ = binary.Write(&buf, binary.LittleEndian, section)
	buf.Write(make([]byte, peRawDataOffset-buf.Len()))

	text := make([]byte, peSectionSize)
	text[0] = 0xc3 // ret
	buf.Write(text)
	return buf.Bytes()
}
