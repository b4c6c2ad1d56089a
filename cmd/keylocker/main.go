// Command keylocker is the orchestrator CLI around the keylocker
// library: it resolves a target (file or block device) to a Region,
// reads a password, and dispatches to Vault.Create/Put/Get, plus the
// supplemented wipe (destroy) and verify (dry-run) subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/integrii/flaggy"
	"github.com/sirupsen/logrus"

	"github.com/cryptostash/keylocker"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		debug        bool
		extended     bool
		plain        bool
		legacyKDF    bool
		shamirN      = 7
		shamirT      = 4
		copies       = 3
		target       string
		offsetSpec   = "0"
		lengthSpec   = "-0"
		device       bool
		label        string
		entryDevice  string
		entryStart   int
		entryLength  int
		entryText    string
	)

	flaggy.SetName("keylocker")
	flaggy.SetDescription("steganographic key vault over a file or block device")
	flaggy.Bool(&debug, "d", "debug", "enable debug logging")
	flaggy.SetVersion(version)

	create := flaggy.NewSubcommand("create")
	create.Description = "initialize a KeyFile region with uniform random bytes"
	create.AddPositionalValue(&target, "target", 1, true, "file or block device path")
	create.String(&offsetSpec, "o", "offset", "region start offset (supports K/M/G suffixes, -N for end-relative)")
	create.String(&lengthSpec, "l", "length", "region length (-0 means to the end of the target)")
	create.Bool(&device, "D", "device", "treat target as a raw block device")

	put := flaggy.NewSubcommand("put")
	put.Description = "store an entry under a password and label"
	put.AddPositionalValue(&target, "target", 1, true, "file or block device path")
	put.AddPositionalValue(&label, "label", 2, true, "device identifier / entry label")
	put.String(&offsetSpec, "o", "offset", "region start offset")
	put.String(&lengthSpec, "l", "length", "region length")
	put.Bool(&device, "D", "device", "treat target as a raw block device")
	put.Bool(&extended, "x", "extended", "use the extended (128-byte) slot size")
	put.Bool(&plain, "p", "plain", "use plain redundant-copy mode instead of Shamir")
	put.Bool(&legacyKDF, "k", "legacy-kdf", "derive the master key with PBKDF2-SHA256 instead of Argon2id")
	put.Int(&shamirN, "n", "shares", "Shamir share count")
	put.Int(&shamirT, "t", "threshold", "Shamir reconstruction threshold")
	put.Int(&copies, "c", "copies", "plain mode copy count")
	put.String(&entryDevice, "e", "entry-device", "device identifier of the hidden partition this entry describes")
	put.Int(&entryStart, "s", "start", "start offset in bytes of the hidden partition")
	put.Int(&entryLength, "L", "entry-length", "length in bytes of the hidden partition")
	put.String(&entryText, "T", "text", "optional free-form note stored with the entry")

	get := flaggy.NewSubcommand("get")
	get.Description = "recover an entry stored under a password and label"
	get.AddPositionalValue(&target, "target", 1, true, "file or block device path")
	get.AddPositionalValue(&label, "label", 2, true, "device identifier / entry label")
	get.String(&offsetSpec, "o", "offset", "region start offset")
	get.String(&lengthSpec, "l", "length", "region length")
	get.Bool(&device, "D", "device", "treat target as a raw block device")
	get.Bool(&extended, "x", "extended", "the KeyFile was created with the extended slot size")
	get.Bool(&legacyKDF, "k", "legacy-kdf", "the KeyFile was put with the PBKDF2-SHA256 fallback instead of Argon2id")

	verify := flaggy.NewSubcommand("verify")
	verify.Description = "attempt recovery without printing the entry; exit 0 only if something was recovered"
	verify.AddPositionalValue(&target, "target", 1, true, "file or block device path")
	verify.AddPositionalValue(&label, "label", 2, true, "device identifier / entry label")
	verify.String(&offsetSpec, "o", "offset", "region start offset")
	verify.String(&lengthSpec, "l", "length", "region length")
	verify.Bool(&device, "D", "device", "treat target as a raw block device")
	verify.Bool(&extended, "x", "extended", "the KeyFile was created with the extended slot size")
	verify.Bool(&legacyKDF, "k", "legacy-kdf", "the KeyFile was put with the PBKDF2-SHA256 fallback instead of Argon2id")

	wipe := flaggy.NewSubcommand("wipe")
	wipe.Description = "overwrite the region with fresh random bytes and discard it on TRIM-capable devices"
	wipe.AddPositionalValue(&target, "target", 1, true, "file or block device path")
	wipe.String(&offsetSpec, "o", "offset", "region start offset")
	wipe.String(&lengthSpec, "l", "length", "region length")
	wipe.Bool(&device, "D", "device", "treat target as a raw block device")

	flaggy.AttachSubcommand(create, 1)
	flaggy.AttachSubcommand(put, 1)
	flaggy.AttachSubcommand(get, 1)
	flaggy.AttachSubcommand(verify, 1)
	flaggy.AttachSubcommand(wipe, 1)
	flaggy.Parse()

	log := newLogger(debug)
	runID := uuid.New().String()
	logger := logrus.NewEntry(log).WithField("run", runID)

	var err error
	switch {
	case create.Used:
		err = doCreate(logger, target, offsetSpec, lengthSpec, device, extended)
	case put.Used:
		err = doPut(logger, target, label, offsetSpec, lengthSpec, device, extended, plain, legacyKDF, shamirN, shamirT, copies, entryDevice, int64(entryStart), int64(entryLength), entryText)
	case get.Used:
		err = doGet(logger, target, label, offsetSpec, lengthSpec, device, extended, legacyKDF)
	case verify.Used:
		err = doVerify(logger, target, label, offsetSpec, lengthSpec, device, extended, legacyKDF)
	case wipe.Used:
		err = doWipe(logger, target, offsetSpec, lengthSpec, device)
	default:
		flaggy.ShowHelpAndExit("no subcommand given")
		return 2
	}

	if err == nil {
		return 0
	}
	return exitCodeFor(logger, err)
}

// exitCodeFor logs the operation's outcome category, never its
// contents, and maps it to a process exit code: 1 for bad password /
// no entry, 2 for usage errors, 3 for I/O errors.
func exitCodeFor(logger *logrus.Entry, err error) int {
	switch {
	case err == keylocker.ErrNoEntry:
		logger.Warn("no entry recovered")
		return 1
	case keylocker.IsUsageError(err):
		logger.WithError(err).Error("usage error")
		return 2
	case keylocker.IsIOError(err):
		logger.WithError(err).Error("io error")
		return 3
	default:
		logger.WithError(err).Error("unexpected error")
		return 3
	}
}

// readSecret prompts on stderr with prompt and reads one line from stdin
// with echo disabled, used for both the vault password and an entry's
// cipher key material.
func readSecret(prompt string) ([]byte, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	pw, err := readLineNoEcho(os.Stdin)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("keylocker: reading %s: %w", prompt, err)
	}
	return pw, nil
}
