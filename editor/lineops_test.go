package editor

import (
	"errors"
	"testing"
)

func TestDeleteLineOp(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
		want string
	}{
		{"first", "a\nb\nc", 0, "b\nc"},
		{"middle", "a\nb\nc", 1, "a\nc"},
		{"last", "a\nb\nc", 2, "a\nb"},
		{"single line", "abc", 0, ""},
		{"empty document", "", 0, ""},
		{"trailing empty line", "a\n", 1, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := DeleteLineOp(newSnapshot(tt.text), tt.line)
			if err != nil {
				t.Fatalf("DeleteLineOp: %v", err)
			}
			if got := applyTo(t, tt.text, op); got != tt.want {
				t.Errorf("result = %q, want %q", got, tt.want)
			}
		})
	}
	if _, err := DeleteLineOp(newSnapshot("a"), 3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("out of range err = %v, want ErrOutOfRange", err)
	}
}

func TestDuplicateLineOp(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
		want string
	}{
		{"first", "a\nb", 0, "a\na\nb"},
		{"last", "a\nb", 1, "a\nb\nb"},
		{"single", "x", 0, "x\nx"},
		{"empty line", "a\n\nb", 1, "a\n\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := DuplicateLineOp(newSnapshot(tt.text), tt.line)
			if err != nil {
				t.Fatalf("DuplicateLineOp: %v", err)
			}
			if got := applyTo(t, tt.text, op); got != tt.want {
				t.Errorf("result = %q, want %q", got, tt.want)
			}
		})
	}
	if _, err := DuplicateLineOp(newSnapshot("a"), -1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("out of range err = %v, want ErrOutOfRange", err)
	}
}

func TestMoveLineOp(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		line   int
		delta  int
		want   string
		wantOK bool
	}{
		{"down", "a\nb\nc", 0, 1, "b\na\nc", true},
		{"up", "a\nb\nc", 2, -1, "a\nc\nb", true},
		{"first up", "a\nb", 0, -1, "a\nb", false},
		{"last down", "a\nb", 1, 1, "a\nb", false},
		{"swap across middle", "a\nb\nc", 0, 2, "c\nb\na", true},
		{"zero delta", "a\nb", 0, 0, "a\nb", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok, err := MoveLineOp(newSnapshot(tt.text), tt.line, tt.delta)
			if err != nil {
				t.Fatalf("MoveLineOp: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			got := tt.text
			if ok {
				got = applyTo(t, tt.text, op)
			}
			if got != tt.want {
				t.Errorf("result = %q, want %q", got, tt.want)
			}
		})
	}
	if _, _, err := MoveLineOp(newSnapshot("a"), 4, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("out of range err = %v, want ErrOutOfRange", err)
	}
}
