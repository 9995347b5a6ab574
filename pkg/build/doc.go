/*
Package build compiles synthesized stub sources with an external toolchain.

An Orchestrator creates an isolated working directory for each build, writes the sources into it, runs a Toolchain scoped to that directory, and copies the resulting artifact to the requested output path.
The working directory and everything in it is removed on every exit path, including toolchain failures.
The output path is written through a temporary file in the same directory and renamed into place, so it never holds a partial artifact.
*/
package build
