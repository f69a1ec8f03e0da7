package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ProbeFile is the content of one measurement file: a description line, a
// free-form second line, a header line and whitespace-separated data rows.
type ProbeFile struct {
	Description string
	Comment     string
	Header      string
	Rows        []string
}

// V2Header is the column header of a typical v2 run
const V2Header = "n K freeFraction successful-search unsuccessful-search"

// V3Header is the column header of a typical v3 run
const V3Header = "m n K freeFraction successful-search unsuccessful-search insertion timeavg-insertion timeavg-load k elapsed-sec E[Load]"

// String renders the file the way the benchmark harness writes it
func (p ProbeFile) String() string {
	comment := p.Comment
	if comment == "" {
		comment = "# generated"
	}
	lines := append([]string{p.Description, comment, p.Header}, p.Rows...)
	return strings.Join(lines, "\n") + "\n"
}

// WriteProbeFile writes p to dir/name and returns the full path
func WriteProbeFile(t *testing.T, dir, name string, p ProbeFile) string {
	t.Helper()
	return WriteRaw(t, dir, name, p.String())
}

// WriteRaw writes content verbatim to dir/name and returns the full path
func WriteRaw(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteProbeDir writes every file into a fresh temporary directory and
// returns the directory
func WriteProbeDir(t *testing.T, files map[string]ProbeFile) string {
	t.Helper()
	dir := t.TempDir()
	for name, p := range files {
		WriteProbeFile(t, dir, name, p)
	}
	return dir
}
