package util

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const RegexpIgnoreCase = "(?i)"

// Glob lists the files under root matching pattern, relative to root and with
// forward slashes. A pattern without a slash matches file names only.
func Glob(root, pattern string) (out []string) {
	root = Try(filepath.Abs(root))
	isPath := strings.Contains(pattern, "/")
	anchor := "^"
	if isPath {
		anchor = ""
	}

	re := regexp.MustCompile(RegexpIgnoreCase + anchor + "(" + GlobRegex(pattern) + ")$")
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		path = Relative(root, path)
		path = strings.ReplaceAll(path, "\\", "/")

		name := d.Name()
		if isPath {
			name = path
		}
		if re.MatchString(name) {
			out = append(out, path)
		}
		return nil
	})
	return out
}

func GlobRegex(pattern string) string {
	var output []string

	next, runes := ' ', []rune(pattern)
	for len(runes) > 0 {
		next, runes = runes[0], runes[1:]
		switch next {
		case '/', '\\':
			output = append(output, `[/\\]`)
		case '?':
			output = append(output, `[^/\\]`)
		case '*':
			output = append(output, `[^/\\]*`)
		case '(', ')', '|':
			output = append(output, string(next))
		default:
			output = append(output, regexp.QuoteMeta(string(next)))
		}
	}
	return strings.Join(output, "")
}

func Relative(base, path string) string {
	fullBase, err := filepath.Abs(base)
	NoError(err, "getting absolute base path for relative")

	fullPath, err := filepath.Abs(path)
	NoError(err, "getting absolute path for relative")

	rel, err := filepath.Rel(fullBase, fullPath)
	NoError(err, "getting relative path")
	return rel
}

func WithExtension(filename string, ext string) string {
	out := strings.TrimSuffix(filename, filepath.Ext(filename))
	return out + ext
}

// ReadText returns the file contents, or an empty string if it does not
// exist.
func ReadText(filename string) string {
	out, err := os.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		NoError(err, "reading file text")
	}
	return string(out)
}

// ReadYaml decodes a YAML file into output, or into a generic value when
// output is nil. Returns nil if the file does not exist.
func ReadYaml(filename string, output any) any {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		NoError(err, "reading YAML file")
	}

	if output == nil {
		var generic any
		NoError(yaml.Unmarshal(data, &generic), "decoding YAML file")
		return generic
	}

	NoError(yaml.Unmarshal(data, output), "decoding YAML file")
	return output
}

func WriteText(filepath string, text string) {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	err := os.WriteFile(filepath, ([]byte)(text), fs.ModePerm)
	NoError(err, "writing text file")
}

func WriteYaml(filepath string, data any) {
	WriteText(filepath, Yaml(data))
}

// Yaml encodes data as YAML with a two space indent.
func Yaml(data any) string {
	out := strings.Builder{}
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	NoError(enc.Encode(data), "encoding YAML")
	NoError(enc.Close(), "encoding YAML")
	return out.String()
}

func Exists(filepath string) bool {
	_, err := os.Stat(filepath)
	if os.IsNotExist(err) {
		return false
	}
	NoError(err, "could not stat file")
	return true
}
