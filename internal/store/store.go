// Package store locates and reads background task management store files.
package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// DefaultDir is where macOS keeps the store.
const DefaultDir = "/private/var/db/com.apple.backgroundtaskmanagement"

var ErrNoStore = errors.New("no background items store found")

var storeName = regexp.MustCompile(`^BackgroundItems-v(\d+)\.btm$`)

// Latest returns the path of the store file in dir with the highest format
// number, BackgroundItems-v<N>.btm.
func Latest(dir string) (string, error) {
	if dir == "" {
		dir = DefaultDir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(ErrNoStore, "could not list %s: %v", dir, err)
	}

	best, found := -1, ""
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		n, ok := Version(e.Name())
		if !ok {
			continue
		}

		if n > best {
			best, found = n, e.Name()
		}
	}

	if found == "" {
		return "", errors.Wrapf(ErrNoStore, "in %s", dir)
	}

	return filepath.Join(dir, found), nil
}

// Version extracts N from a BackgroundItems-v<N>.btm path.
func Version(path string) (int, bool) {
	m := storeName.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// Read returns the contents of the store file at path.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoStore, "%s", path)
		}
		return nil, errors.Wrapf(err, "could not read %s", path)
	}

	return data, nil
}
