package main

import (
	"bufio"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// readLineNoEcho reads one line from r, disabling terminal echo for the
// duration of the read when r is a terminal. This avoids taking on a
// dedicated terminal-handling dependency for a single password prompt;
// the echo toggle itself uses termios ioctls from golang.org/x/sys/unix,
// the package the block-device code elsewhere in this module already
// depends on.
func readLineNoEcho(r io.Reader) ([]byte, error) {
	f, isFile := r.(*os.File)
	if !isFile || !isTerminal(f) {
		return readLine(r)
	}

	fd := int(f.Fd())
	oldState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return readLine(r)
	}
	newState := *oldState
	newState.Lflag &^= unix.ECHO
	newState.Lflag |= unix.ICANON | unix.ISIG
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &newState); err != nil {
		return readLine(r)
	}
	defer unix.IoctlSetTermios(fd, unix.TCSETS, oldState)

	return readLine(r)
}

func isTerminal(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}

func readLine(r io.Reader) ([]byte, error) {
	reader := bufio.NewReader(r)
	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}
