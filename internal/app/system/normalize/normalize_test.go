package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@EXAMPLE.COM", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
		{"Mixed.Case@Domain.ORG", "mixed.case@domain.org"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Email(tt.input)
			if got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"John Doe", "John Doe"},
		{"  John Doe  ", "John Doe"},
		{"John   Doe", "John Doe"},
		{"", ""},
		{"   ", ""},
		{"UPPERCASE NAME", "UPPERCASE NAME"}, // Name preserves case
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Name(tt.input)
			if got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDisplayNameFromEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"jo.ann_smith@example.com", "Jo Ann Smith"},
		{"alex@example.com", "Alex"},
		{"mary-jones@example.com", "Mary Jones"},
		{"a.b-c_d@example.com", "A B C D"},
		{"@example.com", "@example.com"}, // no local part: returned unchanged
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := DisplayNameFromEmail(tt.input)
			if got != tt.want {
				t.Errorf("DisplayNameFromEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jo Ann Smith", "JA"},
		{"Alex", "A"},
		{"", "?"},
		{"   ", "?"},
		{"mary jones", "MJ"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Initials(tt.input)
			if got != tt.want {
				t.Errorf("Initials(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
