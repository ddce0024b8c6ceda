package runtime

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// OutputFile is an open output destination: a file or the stdin of a
// shell command.
type OutputFile struct {
	closer io.Closer
	writer *bufio.Writer
	cmd    *exec.Cmd
	append bool
}

// Append reports whether the file was opened for appending.
func (of *OutputFile) Append() bool { return of.append }

func (of *OutputFile) close() error {
	err := of.writer.Flush()
	if cerr := of.closer.Close(); err == nil {
		err = cerr
	}
	if of.cmd != nil {
		if werr := of.cmd.Wait(); err == nil {
			err = werr
		}
	}
	return err
}

// FileWrite caches output files and pipes by name. A file is truncated or
// opened for appending according to the first write that names it; it
// then stays open, and later writes append regardless of their mode,
// until Close.
type FileWrite struct {
	mu      sync.Mutex
	files   Registry[*OutputFile]
	pipes   Registry[*OutputFile]
	bufSize int
	stdout  io.Writer
}

// NewFileWrite returns an empty cache whose writers buffer bufSize bytes.
// Commands started for pipes write their own output to stdout.
func NewFileWrite(bufSize int, stdout io.Writer) *FileWrite {
	if bufSize <= 0 {
		bufSize = 64 << 10
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	return &FileWrite{bufSize: bufSize, stdout: stdout}
}

// Write writes s to the file at path.
func (fw *FileWrite) Write(path, s string, append bool) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	of, err := fw.files.Get(path, func(p string) (*OutputFile, error) {
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if append {
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(p, flag, 0o644)
		if err != nil {
			mode := "write"
			if append {
				mode = "append"
			}
			return nil, fmt.Errorf("failed to open file %q for %s: %w", p, mode, err)
		}
		return &OutputFile{closer: f, writer: bufio.NewWriterSize(f, fw.bufSize), append: append}, nil
	})
	if err != nil {
		return err
	}
	if _, err := of.writer.WriteString(s); err != nil {
		return fmt.Errorf("failed to write to file %q: %w", path, err)
	}
	return nil
}

// WritePipe writes s to the stdin of the shell command cmdStr, starting
// the command on first use.
func (fw *FileWrite) WritePipe(cmdStr, s string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	of, err := fw.pipes.Get(cmdStr, func(c string) (*OutputFile, error) {
		cmd := exec.Command(getShell(), getShellArg(), c)
		cmd.Stdout = fw.stdout
		cmd.Stderr = os.Stderr
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			stdin.Close()
			return nil, fmt.Errorf("failed to start %q: %w", c, err)
		}
		return &OutputFile{closer: stdin, writer: bufio.NewWriterSize(stdin, fw.bufSize), cmd: cmd}, nil
	})
	if err != nil {
		return err
	}
	if _, err := of.writer.WriteString(s); err != nil {
		return fmt.Errorf("failed to write to command %q: %w", cmdStr, err)
	}
	return nil
}

// Lookup returns the open file for path, if any.
func (fw *FileWrite) Lookup(path string) (*OutputFile, bool) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.files.Lookup(path)
}

// Len returns the number of open files and pipes.
func (fw *FileWrite) Len() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.files.Len() + fw.pipes.Len()
}

// Flush flushes every open writer.
func (fw *FileWrite) Flush() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	var errs []error
	flush := func(_ string, of *OutputFile) bool {
		if err := of.writer.Flush(); err != nil {
			errs = append(errs, err)
		}
		return true
	}
	fw.files.Range(flush)
	fw.pipes.Range(flush)
	return errors.Join(errs...)
}

// Close flushes and closes every file, waits for every command, and
// empties the cache.
func (fw *FileWrite) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	var errs []error
	closeAll := func(_ string, of *OutputFile) bool {
		if err := of.close(); err != nil {
			errs = append(errs, err)
		}
		return true
	}
	fw.files.Range(closeAll)
	fw.pipes.Range(closeAll)
	fw.files.Clear()
	fw.pipes.Clear()
	return errors.Join(errs...)
}

// InputFile is an open line reader.
type InputFile struct {
	closer io.Closer
	reader *bufio.Reader
}

// openInput opens path for reading, decompressing .xz and .lz4 files.
func openInput(path string) (*InputFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}
	var r io.Reader = f
	switch {
	case strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open xz stream %q: %w", path, err)
		}
		r = xr
	case strings.HasSuffix(path, ".lz4"):
		r = lz4.NewReader(f)
	}
	return &InputFile{closer: f, reader: bufio.NewReader(r)}, nil
}

// readLine returns the next line without its terminator. ok is false at
// end of input.
func readLine(r *bufio.Reader) (line string, ok bool, err error) {
	line, err = r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if line == "" && err != nil {
		return "", false, nil
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true, nil
}

// FileRead caches input files by name. Each file keeps its read position
// across calls.
type FileRead struct {
	files Registry[*InputFile]
}

// ReadLine reads the next line of the file at path.
func (fr *FileRead) ReadLine(path string) (string, bool, error) {
	in, err := fr.files.Get(path, openInput)
	if err != nil {
		return "", false, err
	}
	return readLine(in.reader)
}

// Len returns the number of open files.
func (fr *FileRead) Len() int { return fr.files.Len() }

// Close closes every file.
func (fr *FileRead) Close() error {
	var errs []error
	fr.files.Range(func(_ string, in *InputFile) bool {
		if err := in.closer.Close(); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	fr.files.Clear()
	return errors.Join(errs...)
}

// getShell returns the shell to use for command execution.
func getShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	// Windows
	if comspec := os.Getenv("COMSPEC"); comspec != "" {
		return comspec
	}
	return "sh"
}

// getShellArg returns the argument to pass to the shell for command execution.
func getShellArg() string {
	shell := getShell()
	// Windows cmd.exe uses /c
	if shell == os.Getenv("COMSPEC") || shell == "cmd.exe" || shell == "cmd" {
		return "/c"
	}
	return "-c"
}
