/*
Package format classifies raw bytes as one of the executable container formats that can be packed.

Classification parses the container headers with debug/elf and debug/pe rather than trusting file names or caller metadata.
A byte sequence that isn't a complete, well-formed ELF or PE image is reported as Unrecognized, which is a normal outcome and never an error.
This includes inputs with the right magic bytes but truncated or corrupted header tables, and headers that point past the end of the data.
*/
package format
