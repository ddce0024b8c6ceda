package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestLockedWriterFlushWhileWriting(t *testing.T) {
	var out bytes.Buffer
	w := newLockedWriter(&out)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if _, err := w.Write([]byte("line\n")); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	for range 10 {
		if err := w.Flush(); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out.String(), "line\n"); got != 400 {
		t.Errorf("flushed %d lines, want 400", got)
	}
}

func TestLockedWriterBuffers(t *testing.T) {
	var out bytes.Buffer
	w := newLockedWriter(&out)
	if _, err := w.Write([]byte("pending")); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("wrote %q before Flush", out.String())
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "pending" {
		t.Errorf("got %q", out.String())
	}
}
