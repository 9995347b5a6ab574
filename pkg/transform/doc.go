/*
Package transform implements the reversible compress-then-encrypt pipeline applied to a payload before it's embedded in a stub.

# How it works:

Compress runs the payload through a Codec at its maximum ratio setting and prepends a small frame header.
The header records the codec, the container format, the original length and a CRC-64 checksum of the original bytes, so the receiving side can tell a correct decryption from garbage before it does anything with the result.

GenerateKeyMaterial produces a fresh AES-256 key and CBC initialization vector from the OS entropy pool.
Encrypt seals the framed bytes with AES-256-CBC and PKCS#7 padding, and Decrypt reverses it.

Decompress checks the header, inflates the body and verifies both the length and the checksum against the header.

# General guidelines:
  - Always compress before encrypting. Ciphertext doesn't compress.
  - Never reuse KeyMaterial between payloads. Call GenerateKeyMaterial for each one, and Zero it when it's no longer needed.
  - CBC with PKCS#7 provides no authentication. The frame checksum detects accidental corruption, not tampering.
*/
package transform
