//go:build !unix

package builtin

import "io/fs"

// permString renders `ls -l`'s permission column from Go's portable
// fs.FileMode string form; the Unix access(2) cross-check in
// perm_unix.go has no Windows equivalent in this spec's scope.
func permString(_ string, info fs.FileInfo) string {
	return info.Mode().String()
}
