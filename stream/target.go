package stream

import "os"

// Target names where a Writer or Reader sends or reads its bytes: either a
// filesystem path the library manages (opening, suffixing, renaming), or a
// caller-owned, already-open file descriptor the library neither renames
// nor closes.
type Target struct {
	path string
	file *os.File
	isFD bool
}

// FileTarget names a filesystem path. The writer appends ".part" (and a
// compression extension, if any) while writing, and renames to the final
// name on clean Close.
func FileTarget(path string) Target {
	return Target{path: path}
}

// FDTarget wraps a caller-opened file descriptor. No suffix is appended, no
// rename happens, and Close flushes but does not close f.
func FDTarget(f *os.File) Target {
	return Target{file: f, isFD: true}
}
