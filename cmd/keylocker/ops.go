package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/cryptostash/keylocker"
)

// openTarget resolves target/offsetSpec/lengthSpec/device into a
// keylocker.Region. Both plain files and raw block devices go through
// OpenDeviceRegion: deviceSize already falls back to a regular Stat when
// the BLKGETSIZE64 ioctl doesn't apply, so one code path serves both.
// OpenFileRegion (backed by an absfs.FileSystem) exists for library
// callers who want an in-memory region, e.g. the test suite's memfs
// fixtures; the CLI has no need for it since it always targets real
// paths on this host.
func openTarget(target, offsetSpec, lengthSpec string, device bool) (keylocker.Region, error) {
	// Seeking to the end reports a block device's size too, where Stat
	// reports 0.
	f, err := os.Open(target)
	if err != nil {
		return nil, keylocker.NewIOError("open", target, err)
	}
	total, err := f.Seek(0, io.SeekEnd)
	f.Close()
	if err != nil {
		return nil, keylocker.NewIOError("seek", target, err)
	}
	offset, err := keylocker.ParseOffsetSpec(offsetSpec, total, nil)
	if err != nil {
		return nil, err
	}
	length, err := keylocker.ParseLengthSpec(lengthSpec, total, offset)
	if err != nil {
		return nil, err
	}
	return keylocker.OpenDeviceRegion(target, offset, length)
}

func paramsFor(extended, legacyKDF bool) keylocker.Params {
	p := keylocker.DefaultParams()
	if extended {
		p = keylocker.ExtendedParams()
	}
	if legacyKDF {
		p.KDF = keylocker.KDFPBKDF2SHA256
	}
	return p
}

func doCreate(logger *logrus.Entry, target, offsetSpec, lengthSpec string, device, extended bool) error {
	region, err := openTarget(target, offsetSpec, lengthSpec, device)
	if err != nil {
		return err
	}
	vault, err := keylocker.New(paramsFor(extended, false))
	if err != nil {
		return err
	}
	if err := vault.Create(region); err != nil {
		return err
	}
	logger.WithField("bytes", region.Size()).Info("create complete")
	return nil
}

func doPut(logger *logrus.Entry, target, label, offsetSpec, lengthSpec string, device, extended, plain, legacyKDF bool, n, t, copies int, entryDevice string, entryStart, entryLength int64, entryText string) error {
	region, err := openTarget(target, offsetSpec, lengthSpec, device)
	if err != nil {
		return err
	}
	password, err := readSecret("password")
	if err != nil {
		return err
	}
	secretPassword := keylocker.NewSecretBuffer(password)
	defer secretPassword.Clear()

	cipherKey, err := readSecret("hidden partition cipher key")
	if err != nil {
		return err
	}
	defer keylocker.NewSecretBuffer(cipherKey).Clear()

	vault, err := keylocker.New(paramsFor(extended, legacyKDF))
	if err != nil {
		return err
	}

	mode := keylocker.DefaultMode()
	if plain {
		mode = keylocker.PlainMode(copies)
	} else if n != 7 || t != 4 {
		mode = keylocker.ShamirMode(n, t)
	}

	entry := keylocker.Entry{
		DeviceID:  entryDevice,
		Start:     entryStart,
		Length:    entryLength,
		CipherKey: cipherKey,
		Text:      entryText,
	}
	if err := vault.Put(region, secretPassword.Bytes(), label, entry, mode); err != nil {
		return err
	}
	logger.WithField("label", label).Info("put complete")
	return nil
}

func doGet(logger *logrus.Entry, target, label, offsetSpec, lengthSpec string, device, extended, legacyKDF bool) error {
	entry, err := recoverEntry(target, label, offsetSpec, lengthSpec, device, extended, legacyKDF)
	if err != nil {
		return err
	}
	defer clearEntry(entry)
	fmt.Fprintf(os.Stdout, "device=%s start=%d length=%d key=%s\n",
		entry.DeviceID, entry.Start, entry.Length, hex.EncodeToString(entry.CipherKey))
	if entry.Text != "" {
		fmt.Fprintln(os.Stdout, entry.Text)
	}
	logger.WithField("label", label).Info("get complete")
	return nil
}

func doVerify(logger *logrus.Entry, target, label, offsetSpec, lengthSpec string, device, extended, legacyKDF bool) error {
	entry, err := recoverEntry(target, label, offsetSpec, lengthSpec, device, extended, legacyKDF)
	if err != nil {
		return err
	}
	defer clearEntry(entry)
	logger.WithField("label", label).Info("verify: entry recovered")
	return nil
}

func doWipe(logger *logrus.Entry, target, offsetSpec, lengthSpec string, device bool) error {
	region, err := openTarget(target, offsetSpec, lengthSpec, device)
	if err != nil {
		return err
	}
	vault, err := keylocker.New(keylocker.DefaultParams())
	if err != nil {
		return err
	}
	if err := vault.Create(region); err != nil {
		return err
	}
	if dr, ok := region.(interface{ Discard() error }); ok {
		if err := dr.Discard(); err != nil {
			logger.WithError(err).Warn("discard not supported on this target, random overwrite still completed")
		}
	}
	logger.WithField("bytes", region.Size()).Info("wipe complete")
	return nil
}

func recoverEntry(target, label, offsetSpec, lengthSpec string, device, extended, legacyKDF bool) (keylocker.Entry, error) {
	region, err := openTarget(target, offsetSpec, lengthSpec, device)
	if err != nil {
		return keylocker.Entry{}, err
	}
	password, err := readSecret("password")
	if err != nil {
		return keylocker.Entry{}, err
	}
	secretPassword := keylocker.NewSecretBuffer(password)
	defer secretPassword.Clear()

	vault, err := keylocker.New(paramsFor(extended, legacyKDF))
	if err != nil {
		return keylocker.Entry{}, err
	}
	return vault.Get(region, secretPassword.Bytes(), label)
}

func clearEntry(e keylocker.Entry) {
	keylocker.NewSecretBuffer(e.CipherKey).Clear()
}
