package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/simusolve/internal/linsys"
)

func TestWriteFileTeX(t *testing.T) {
	f := linsys.GetFixture("n3")
	path := filepath.Join(t.TempDir(), "output.tex")

	err := writeFile(path, func(w io.Writer) error { return linsys.WriteSolutionTeX(w, f.Solution) })
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "a_{0} = -1.6349 \\\\\na_{1} = 2.9841 \\\\\na_{2} = -0.1111 \\\\\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteFileErrors(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")

	if err := writeFile(filepath.Join(dir, "a"), func(io.Writer) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected write error, got %v", err)
	}

	closeEarly := func(w io.Writer) error { return w.(*os.File).Close() }
	if err := writeFile(filepath.Join(dir, "b"), closeEarly); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected close error, got %v", err)
	}
}
