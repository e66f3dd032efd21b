package id

import (
	"testing"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		got := New()
		if !IsUUID(got) {
			t.Fatalf("New() = %q, not a UUID", got)
		}
		if seen[got] {
			t.Fatalf("New() returned duplicate %q", got)
		}
		seen[got] = true
	}
}

func TestNewRun(t *testing.T) {
	got := NewRun()
	if len(got) != len("run-")+32 {
		t.Errorf("NewRun() = %q, unexpected length %d", got, len(got))
	}
	if got[:4] != "run-" {
		t.Errorf("NewRun() = %q, want run- prefix", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "uuid", input: "550e8400-e29b-41d4-a716-446655440000"},
		{name: "compact", input: "0ab1cd2ef3gh4ij5kl6mn7op8q"},
		{name: "short custom", input: "T9"},
		{name: "empty", input: "", wantErr: true},
		{name: "space", input: "T 9", wantErr: true},
		{name: "newline", input: "T9\n", wantErr: true},
		{name: "slash", input: "a/b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestIsUUID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"550E8400-E29B-41D4-A716-446655440000", true},
		{"550e8400e29b41d4a716446655440000", false},
		{"not-a-uuid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsUUID(tt.input); got != tt.want {
				t.Errorf("IsUUID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsGenerated(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"0ab1cd2ef3gh4ij5kl6mn7op8q", true},
		{"0AB1CD2EF3GH4IJ5KL6MN7OP8Q", false},
		{"T9", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsGenerated(tt.input); got != tt.want {
				t.Errorf("IsGenerated(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
