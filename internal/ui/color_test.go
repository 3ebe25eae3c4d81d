package ui

import (
	"testing"
)

func TestStatusFunctions(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tests := map[string]struct {
		fn    func(string) string
		input string
		want  string
	}{
		"success empty":    {fn: StatusSuccess, input: "", want: SymbolSuccess},
		"success with msg": {fn: StatusSuccess, input: "pushed", want: SymbolSuccess + " pushed"},
		"error empty":      {fn: StatusError, input: "", want: SymbolError},
		"error with msg":   {fn: StatusError, input: "failed", want: SymbolError + " failed"},
		"warning with msg": {fn: StatusWarning, input: "partial", want: SymbolWarning + " partial"},
		"skipped with msg": {fn: StatusSkipped, input: "read-only", want: SymbolSkipped + " read-only"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.fn(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	DisableColors()
	defer EnableColors()

	if got := StatusFor(true, "page"); got != SymbolSuccess+" page" {
		t.Errorf("StatusFor(true) = %q", got)
	}
	if got := StatusFor(false, "page"); got != SymbolError+" page" {
		t.Errorf("StatusFor(false) = %q", got)
	}
}

func TestSetColorMode(t *testing.T) {
	initial := IsColorEnabled()
	defer func() {
		if initial {
			EnableColors()
		} else {
			DisableColors()
		}
	}()

	tests := map[string]struct {
		mode    string
		start   bool
		want    bool
		wantErr bool
	}{
		"never disables":     {mode: "never", start: true, want: false},
		"always enables":     {mode: "always", start: false, want: true},
		"auto keeps state":   {mode: "auto", start: false, want: false},
		"empty keeps state":  {mode: "", start: true, want: true},
		"case insensitive":   {mode: " NEVER ", start: true, want: false},
		"unknown is invalid": {mode: "sometimes", start: true, want: true, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if tt.start {
				EnableColors()
			} else {
				DisableColors()
			}
			err := SetColorMode(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetColorMode(%q) error = %v, wantErr %v", tt.mode, err, tt.wantErr)
			}
			if IsColorEnabled() != tt.want {
				t.Errorf("IsColorEnabled() = %v, want %v", IsColorEnabled(), tt.want)
			}
		})
	}
}

func TestColorFunctions(t *testing.T) {
	DisableColors()
	defer EnableColors()

	for name, fn := range map[string]func(...any) string{
		"Success": Success,
		"Error":   Error,
		"Warning": Warning,
		"Info":    Info,
		"Bold":    Bold,
		"Dim":     Dim,
		"Header":  Header,
	} {
		if got := fn("ENGL-102"); got != "ENGL-102" {
			t.Errorf("%s() = %q, want plain text", name, got)
		}
	}
}
