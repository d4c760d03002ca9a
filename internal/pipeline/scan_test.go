package pipeline

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeScanTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestScanInput(t *testing.T) {
	root := writeScanTree(t, map[string]string{
		"1/alice_1.png":        "",
		"1/bob_1.jpg":          "",
		"1/alice_1_r.png":      "",
		"2/alice_2.tif":        "",
		"2/van_der_berg_2.png": "",
	})

	scans, skipped, err := ScanInput(root)
	if err != nil {
		t.Fatalf("ScanInput: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped %v, want none", skipped)
	}

	got := make([]PageScan, len(scans))
	for i, s := range scans {
		s.Path = ""
		got[i] = s
	}
	want := []PageScan{
		{StudentID: "alice", Page: 1},
		{StudentID: "alice", Page: 1, Replacement: true},
		{StudentID: "bob", Page: 1},
		{StudentID: "alice", Page: 2},
		{StudentID: "van_der_berg", Page: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scans = %+v, want %+v", got, want)
	}
}

func TestScanInputSkipsMalformed(t *testing.T) {
	root := writeScanTree(t, map[string]string{
		"1/alice_1.png":   "",
		"1/notes.txt":     "",
		"1/alice_2.png":   "", // page number does not match directory
		"1/_1.png":        "", // empty student id
		"templates/m.png": "", // non-numeric directory
	})

	scans, skipped, err := ScanInput(root)
	if err != nil {
		t.Fatalf("ScanInput: %v", err)
	}
	if len(scans) != 1 || scans[0].StudentID != "alice" {
		t.Errorf("scans = %+v, want only alice page 1", scans)
	}
	if len(skipped) != 4 {
		t.Errorf("skipped %d entries (%v), want 4", len(skipped), skipped)
	}
}

func TestScanInputEmptyTree(t *testing.T) {
	if _, _, err := ScanInput(t.TempDir()); err == nil {
		t.Error("expected error for empty input tree")
	}
}

func TestParseScanName(t *testing.T) {
	tests := []struct {
		name string
		page int
		want PageScan
		ok   bool
	}{
		{"alice_3.png", 3, PageScan{StudentID: "alice", Page: 3}, true},
		{"alice_3_r.jpeg", 3, PageScan{StudentID: "alice", Page: 3, Replacement: true}, true},
		{"a_b_c_3.png", 3, PageScan{StudentID: "a_b_c", Page: 3}, true},
		{"ALICE_3.PNG", 3, PageScan{StudentID: "ALICE", Page: 3}, true},
		{"alice_4.png", 3, PageScan{}, false},
		{"alice.png", 3, PageScan{}, false},
		{"alice_3.pdf", 3, PageScan{}, false},
	}
	for _, tt := range tests {
		got, ok := parseScanName(tt.name, tt.page)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseScanName(%q, %d) = %+v, %v; want %+v, %v", tt.name, tt.page, got, ok, tt.want, tt.ok)
		}
	}
}
