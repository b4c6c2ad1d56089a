package keylocker

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/absfs/absfs"
	"golang.org/x/sys/unix"
)

// Region is the uniform block-I/O abstraction every KeyFile operation is
// built on (spec §4.1): a fixed-length, randomly addressable byte range
// that might be backed by a plain file, a slice of a larger file, or a
// raw block device. Nothing above this layer ever opens a file or device
// directly.
type Region interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Size() int64
}

// fileRegion adapts an absfs.File plus a byte-range window to the Region
// interface, the way the teacher's encryptedFile wraps an absfs.File for
// its own offset bookkeeping.
type fileRegion struct {
	file   absfs.File
	path   string
	base   int64
	length int64
}

// OpenFileRegion opens path on fsys and exposes the window [offset,
// offset+length) as a Region. fsys is an absfs.FileSystem so the same
// code path serves a real OS file, an in-memory memfs.FileSystem in
// tests, or any other absfs backend.
func OpenFileRegion(fsys absfs.FileSystem, path string, offset, length int64) (Region, error) {
	f, err := fsys.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, NewIOError("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, NewIOError("stat", path, err)
	}
	if offset+length > info.Size() {
		f.Close()
		return nil, NewUsageError("OpenFileRegion", fmt.Sprintf("window [%d,%d) exceeds file size %d", offset, offset+length, info.Size()))
	}
	return &fileRegion{file: f, path: path, base: offset, length: length}, nil
}

func (r *fileRegion) Size() int64 { return r.length }

func (r *fileRegion) ReadAt(p []byte, off int64) (int, error) {
	if err := r.checkBounds(off, len(p)); err != nil {
		return 0, err
	}
	n, err := r.file.ReadAt(p, r.base+off)
	if err != nil {
		return n, NewIOErrorAt("read", r.path, off, err)
	}
	return n, nil
}

func (r *fileRegion) WriteAt(p []byte, off int64) (int, error) {
	if err := r.checkBounds(off, len(p)); err != nil {
		return 0, err
	}
	n, err := r.file.WriteAt(p, r.base+off)
	if err != nil {
		return n, NewIOErrorAt("write", r.path, off, err)
	}
	return n, nil
}

func (r *fileRegion) checkBounds(off int64, n int) error {
	if off < 0 || int64(n) > r.length-off {
		return NewUsageError("Region", fmt.Sprintf("access [%d,%d) out of bounds for region of length %d", off, off+int64(n), r.length))
	}
	return nil
}

// deviceSectorSize is the logical sector size assumed for unaligned
// read-modify-write on raw block devices. 512 is the universal minimum
// logical sector size; devices with a larger physical sector still
// accept 512-aligned I/O through the kernel's block layer.
const deviceSectorSize = 512

// deviceRegion backs a Region with a raw block device or a file treated
// like one, performing sector-aligned read-modify-write for any write
// whose offset or length isn't itself sector-aligned.
type deviceRegion struct {
	f      *os.File
	path   string
	base   int64
	length int64
}

// OpenDeviceRegion opens a block device (or a regular file used as a
// stand-in for one in tests) at devicePath and exposes the window
// [offset, offset+length) as a Region.
func OpenDeviceRegion(devicePath string, offset, length int64) (Region, error) {
	f, err := os.OpenFile(devicePath, os.O_RDWR, 0o600)
	if err != nil {
		return nil, NewIOError("open", devicePath, err)
	}
	size, err := deviceSize(f)
	if err != nil {
		f.Close()
		return nil, NewIOError("stat", devicePath, err)
	}
	if offset+length > size {
		f.Close()
		return nil, NewUsageError("OpenDeviceRegion", fmt.Sprintf("window [%d,%d) exceeds device size %d", offset, offset+length, size))
	}
	return &deviceRegion{f: f, path: devicePath, base: offset, length: length}, nil
}

// deviceSize reports the size of a block device via BLKGETSIZE64,
// falling back to Stat for regular files, grounded on go-luks2's
// getBlockDeviceSize.
func deviceSize(f *os.File) (int64, error) {
	var size int64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno == 0 {
		return size, nil
	}
	stat, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

func (r *deviceRegion) Size() int64 { return r.length }

func (r *deviceRegion) ReadAt(p []byte, off int64) (int, error) {
	if err := r.checkBounds(off, len(p)); err != nil {
		return 0, err
	}
	n, err := r.f.ReadAt(p, r.base+off)
	if err != nil {
		return n, NewIOErrorAt("read", r.path, off, err)
	}
	return n, nil
}

// WriteAt performs a sector-aligned read-modify-write whenever the
// requested range isn't already sector-aligned, since raw block devices
// commonly reject unaligned writes outright.
func (r *deviceRegion) WriteAt(p []byte, off int64) (int, error) {
	if err := r.checkBounds(off, len(p)); err != nil {
		return 0, err
	}
	absOff := r.base + off
	alignedStart := absOff - absOff%deviceSectorSize
	end := absOff + int64(len(p))
	alignedEnd := end
	if rem := end % deviceSectorSize; rem != 0 {
		alignedEnd += deviceSectorSize - rem
	}

	if alignedStart == absOff && alignedEnd == end {
		n, err := r.f.WriteAt(p, absOff)
		if err != nil {
			return n, NewIOErrorAt("write", r.path, off, err)
		}
		return n, nil
	}

	buf := make([]byte, alignedEnd-alignedStart)
	if n, err := r.f.ReadAt(buf, alignedStart); err != nil {
		// A regular file standing in for a device may end inside its last
		// sector: keep the bytes up to the file's end and write no further.
		if err != io.EOF || alignedStart+int64(n) < end {
			return 0, NewIOErrorAt("read-modify-write read", r.path, off, err)
		}
		buf = buf[:n]
	}
	copy(buf[absOff-alignedStart:], p)
	if _, err := r.f.WriteAt(buf, alignedStart); err != nil {
		return 0, NewIOErrorAt("read-modify-write write", r.path, off, err)
	}
	return len(p), nil
}

func (r *deviceRegion) checkBounds(off int64, n int) error {
	if off < 0 || int64(n) > r.length-off {
		return NewUsageError("Region", fmt.Sprintf("access [%d,%d) out of bounds for region of length %d", off, off+int64(n), r.length))
	}
	return nil
}

// Discard issues a BLKDISCARD ioctl over the region's full window, for
// TRIM-capable devices, used by the orchestrator's wipe subcommand,
// grounded on go-luks2's wipe.go issueDiscard.
func (r *deviceRegion) Discard() error {
	rng := [2]uint64{uint64(r.base), uint64(r.length)}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, r.f.Fd(), blkdiscardIoctl, uintptr(unsafe.Pointer(&rng)))
	if errno != 0 {
		return NewIOError("discard", r.path, errno)
	}
	return nil
}

// blkdiscardIoctl is BLKDISCARD, not exported by golang.org/x/sys/unix on
// every platform, so it's named directly here as go-luks2's wipe.go does.
const blkdiscardIoctl = 0x1277

// Close releases the underlying file handle for a device region.
func (r *deviceRegion) Close() error {
	return r.f.Close()
}

// Close releases the underlying file handle for a file region.
func (r *fileRegion) Close() error {
	return r.file.Close()
}
