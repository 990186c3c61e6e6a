package tester

import (
	"io/fs"
	"os"
	"path/filepath"

	"axlab.dev/meta/internal/util"
)

// Temporary directory with files, for tests.
type TestDir struct {
	path string
}

func (dir TestDir) Delete() {
	os.RemoveAll(dir.path)
}

func (dir TestDir) DirPath() string {
	return dir.path
}

func (dir TestDir) Join(name string) string {
	return filepath.Join(dir.path, name)
}

func MakeDir(pattern string, input map[string]string) (out TestDir) {
	return util.Try(TryMakeDir(pattern, input))
}

// TryMakeDir creates a temporary directory with the given files. File text
// is normalized with util.Text.
func TryMakeDir(pattern string, input map[string]string) (out TestDir, err error) {
	var path string

	path, err = os.MkdirTemp("", pattern)
	if err != nil {
		return
	}

	for k, v := range input {
		filePath := filepath.Join(path, k)
		if err = os.MkdirAll(filepath.Dir(filePath), fs.ModePerm); err != nil {
			return
		}
		if err = os.WriteFile(filePath, []byte(util.Text(v)), fs.ModePerm); err != nil {
			return
		}
	}

	out = TestDir{path: path}
	return
}
