/*
Package stub synthesizes the source of a small, self-contained Go program that carries an encrypted payload and the key material needed to open it.

The generated program decrypts the payload, checks the frame header written by the transform package, decompresses it, and verifies its length, checksum and container magic before anything is run.
Only then is the recovered executable written to a private temporary directory and started with the stub's own arguments and standard streams.
The stub waits for it, removes the temporary copy, and exits with the payload's exit code.

The encrypted bytes, key and IV are rendered as literal byte tables, so the program has no external data dependency.
A go.mod manifest is rendered alongside it, which only requires a third party module when the kanzi codec is used.
*/
package stub
