package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBytesToBytecode(t *testing.T) {
	b := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
	code, err := BytesToBytecode(b)
	if err != nil {
		t.Fatal(err)
	}
	if code[0] != spirvMagic || code[1] != 0x00010000 {
		t.Fatalf("code = %#x", code)
	}

	if _, err := BytesToBytecode(b[:6]); err == nil {
		t.Fatal("accepted unaligned size")
	}
	if _, err := BytesToBytecode([]byte{1, 2, 3, 4}); err == nil {
		t.Fatal("accepted bad magic")
	}
}

func TestLoadSPIRV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vert.spv")
	if err := os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07}, 0o644); err != nil {
		t.Fatal(err)
	}
	code, err := LoadSPIRV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 1 {
		t.Fatalf("len = %d", len(code))
	}
	if _, err := LoadSPIRV(filepath.Join(t.TempDir(), "missing.spv")); err == nil {
		t.Fatal("missing file loaded")
	}
}
