package runtime

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

func TestFileWriteTruncate(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(testFile, []byte("old contents\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fw := NewFileWrite(0, nil)
	if err := fw.Write(testFile, "hello\n", false); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// Later writes reuse the open file and append.
	if err := fw.Write(testFile, "again\n", false); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "hello\nagain\n" {
		t.Errorf("got %q", content)
	}
}

func TestFileWriteAppend(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "append.txt")
	if err := os.WriteFile(testFile, []byte("first\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fw := NewFileWrite(0, nil)
	if err := fw.Write(testFile, "second\n", true); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	of, ok := fw.Lookup(testFile)
	if !ok || !of.Append() {
		t.Error("expected the cached writer to be in append mode")
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}

	content, _ := os.ReadFile(testFile)
	if string(content) != "first\nsecond\n" {
		t.Errorf("got %q", content)
	}
}

func TestFileWriteCacheIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "same.txt")

	fw := NewFileWrite(0, nil)
	defer fw.Close()

	// Two separately built but equal names resolve to one writer.
	alt := filepath.Join(dir, strings.Repeat("s", 1)+"ame.txt")
	if err := fw.Write(path, "a", false); err != nil {
		t.Fatal(err)
	}
	first, _ := fw.Lookup(path)
	if err := fw.Write(alt, "b", false); err != nil {
		t.Fatal(err)
	}
	second, _ := fw.Lookup(alt)
	if first != second {
		t.Error("equal paths opened two writers")
	}
	if fw.Len() != 1 {
		t.Errorf("Len() = %d, want 1", fw.Len())
	}
	if err := fw.Flush(); err != nil {
		t.Fatal(err)
	}

	// A file written through one cache reads back through the other.
	var fr FileRead
	defer fr.Close()
	line, ok, err := fr.ReadLine(alt)
	if err != nil || !ok || line != "ab" {
		t.Errorf("ReadLine = (%q, %v, %v), want (ab, true, nil)", line, ok, err)
	}
}

func TestFileWriteErrors(t *testing.T) {
	fw := NewFileWrite(0, nil)
	defer fw.Close()
	if err := fw.Write(filepath.Join(t.TempDir(), "missing", "x.txt"), "x", false); err == nil {
		t.Error("expected error writing into a missing directory")
	}
	if fw.Len() != 0 {
		t.Errorf("failed open was cached: Len() = %d", fw.Len())
	}
}

func TestFileReadResumes(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(testFile, []byte("line1\r\nline2\nline3"), 0o644); err != nil {
		t.Fatal(err)
	}

	var fr FileRead
	defer fr.Close()
	for _, want := range []string{"line1", "line2", "line3"} {
		got, ok, err := fr.ReadLine(testFile)
		if err != nil || !ok {
			t.Fatalf("ReadLine: ok=%v err=%v", ok, err)
		}
		if got != want {
			t.Errorf("ReadLine = %q, want %q", got, want)
		}
	}
	if _, ok, err := fr.ReadLine(testFile); ok || err != nil {
		t.Errorf("at EOF: ok=%v err=%v", ok, err)
	}
	if _, _, err := fr.ReadLine(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileReadCompressed(t *testing.T) {
	dir := t.TempDir()
	const text = "alpha\nbeta\n"

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	if err != nil {
		t.Fatal(err)
	}
	xw.Write([]byte(text))
	if err := xw.Close(); err != nil {
		t.Fatal(err)
	}

	var lzBuf bytes.Buffer
	lw := lz4.NewWriter(&lzBuf)
	lw.Write([]byte(text))
	if err := lw.Close(); err != nil {
		t.Fatal(err)
	}

	files := map[string][]byte{
		"in.xz":  xzBuf.Bytes(),
		"in.lz4": lzBuf.Bytes(),
	}
	for name, data := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				t.Fatal(err)
			}
			var fr FileRead
			defer fr.Close()
			var got []string
			for {
				line, ok, err := fr.ReadLine(path)
				if err != nil {
					t.Fatal(err)
				}
				if !ok {
					break
				}
				got = append(got, line)
			}
			if strings.Join(got, ",") != "alpha,beta" {
				t.Errorf("lines = %q", got)
			}
		})
	}
}

func TestFileWritePipe(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}
	t.Setenv("SHELL", "/bin/sh")
	out := filepath.Join(t.TempDir(), "pipe.txt")

	fw := NewFileWrite(0, nil)
	if err := fw.WritePipe("cat > "+out, "piped\n"); err != nil {
		t.Fatalf("WritePipe: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "piped\n" {
		t.Errorf("got %q", content)
	}
}

func BenchmarkFileWrite(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.txt")
	fw := NewFileWrite(0, nil)
	defer fw.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fw.Write(path, "benchmark line\n", false)
	}
}
