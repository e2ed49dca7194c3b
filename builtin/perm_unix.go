//go:build unix

package builtin

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// permString renders `ls -l`'s synthetic rwx permission column, cross
// checking the executable bit against the real access syscall (not just
// the mode bits) the way the teacher's interp/os_unix.go does via
// unix.Access for its own test/permission built-ins.
func permString(path string, info fs.FileInfo) string {
	mode := info.Mode()
	kind := byte('-')
	if info.IsDir() {
		kind = 'd'
	}
	perm := mode.Perm()
	bits := [...]struct {
		bit  fs.FileMode
		char byte
	}{
		{0400, 'r'}, {0200, 'w'}, {0100, 'x'},
		{0040, 'r'}, {0020, 'w'}, {0010, 'x'},
		{0004, 'r'}, {0002, 'w'}, {0001, 'x'},
	}
	buf := make([]byte, 0, 10)
	buf = append(buf, kind)
	for _, b := range bits {
		if perm&b.bit != 0 {
			buf = append(buf, b.char)
		} else {
			buf = append(buf, '-')
		}
	}
	if !info.IsDir() && perm&0111 == 0 && unix.Access(path, unix.X_OK) == nil {
		// Mode bits say non-executable but access(2) disagrees (e.g. an
		// ACL grants it) — surface that the file does run.
		buf[3] = 'x'
	}
	return string(buf)
}
