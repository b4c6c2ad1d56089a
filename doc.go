// Package keylocker implements a steganographic key vault: a single opaque
// byte region (the KeyFile) that stores an unbounded number of independent
// secrets such that, without the correct password, the region is
// indistinguishable from uniform random bytes. Recovering one entry reveals
// nothing about the existence, count, or location of any other entry.
//
// # Overview
//
// A KeyFile is a contiguous byte region: a head salt, an array of
// fixed-size slots, and a tail salt. Entries are added by deriving slot
// positions and keys deterministically from (password, KeyFile salts,
// device identifier), then encrypting and overwriting the chosen slots. No
// index, header, or magic bytes are ever written — every byte of the file
// is either salt or slot ciphertext, and slot ciphertext is itself
// indistinguishable from random.
//
// # Basic usage
//
//	region, err := keylocker.OpenFileRegion(fsys, "/mnt/usb/.cache", 0, 8<<20)
//	vault, err := keylocker.New(keylocker.DefaultParams())
//	vault.Create(region)
//	err = vault.Put(region, []byte("hunter2"), "DISK-A", entry, keylocker.ShamirMode(7, 4))
//	got, err := vault.Get(region, []byte("hunter2"), "DISK-A")
//
// # Supported slot ciphers
//
//   - AES-256 in CTR mode (default): ciphertext length equals plaintext
//     length, no authentication tag, so a slot carries no structural tell.
//   - ChaCha20 (unauthenticated stream): same no-expansion property, usable
//     on platforms without AES-NI.
//
// Neither mode is an AEAD construction: an AEAD tag would make every slot a
// fixed number of bytes larger than its payload, itself a distinguishing
// feature the design forbids. Integrity instead comes from a short
// truncated checksum carried inside the (encrypted) slot payload, combined
// with the Shamir layer's requirement that a threshold of shares agree on a
// valid entry.
//
// # Deniability guarantees
//
//   - Bit indistinguishability: a populated KeyFile and a freshly created
//     one are statistically indistinguishable without a password.
//   - No enumeration: there is no way to list entries; only the exact
//     (password, device id) pair recovers anything.
//   - Collision tolerance: later writes may silently overwrite shares of
//     earlier entries; Shamir thresholds absorb a bounded number of these
//     collisions without losing recoverability.
//
// # Not protected against
//
//   - An attacker who can diff multiple snapshots of the same KeyFile over
//     time (traffic analysis is explicitly out of scope).
//   - Memory inspection of a process while it holds live secrets — this
//     package minimizes that window via explicit zeroization (see
//     [SecretBuffer]) but cannot prevent a privileged memory dump.
//   - Partition-table parsing and password prompting are external
//     collaborators; this package consumes partitions through
//     [PartitionResolver] and takes passwords as byte slices. Entry
//     compression is done in this package with klauspost/compress/flate.
package keylocker
