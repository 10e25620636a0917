package raster

import (
	"bytes"
	"testing"
)

func TestNewRejectsInvalidDimensions(t *testing.T) {
	for _, dims := range [][3]int{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}, {-1, 1, 4}} {
		if _, err := New(dims[0], dims[1], dims[2]); err == nil {
			t.Errorf("New(%v) succeeded, want error", dims)
		}
	}
}

func TestRowViewsAliasAllocation(t *testing.T) {
	b, err := New(4, 3, 2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if b.Stride() != 8 {
		t.Fatalf("Stride() = %d, want 8", b.Stride())
	}

	row, err := b.Row(1)
	if err != nil {
		t.Fatalf("Row(1) error = %v", err)
	}
	if len(row) != 8 {
		t.Fatalf("len(row) = %d, want 8", len(row))
	}
	row[0] = 0xAB

	if b.Bytes()[8] != 0xAB {
		t.Error("row write not visible through Bytes()")
	}
	if got := b.Rows()[1][0]; got != 0xAB {
		t.Errorf("Rows()[1][0] = %#x, want 0xAB", got)
	}
}

func TestRowOutOfRange(t *testing.T) {
	b, _ := New(2, 2, 1)
	for _, y := range []int{-1, 2} {
		if _, err := b.Row(y); err == nil {
			t.Errorf("Row(%d) succeeded, want error", y)
		}
	}
}

func TestFill(t *testing.T) {
	b, _ := New(2, 2, 3)
	if err := b.Fill([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	want := bytes.Repeat([]byte{1, 2, 3}, 4)
	if !bytes.Equal(b.Bytes(), want) {
		t.Errorf("Bytes() = %v, want %v", b.Bytes(), want)
	}

	if err := b.Fill([]byte{1}); err == nil {
		t.Error("Fill() with short pixel succeeded, want error")
	}
}
