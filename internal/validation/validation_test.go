package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCity_EmptyAndWhitespace(t *testing.T) {
	for _, input := range []string{"", "   ", "\t"} {
		_, err := ValidateCity(input, 1, 100)
		if !errors.Is(err, ErrCityEmpty) {
			t.Errorf("ValidateCity(%q) error = %v, want ErrCityEmpty", input, err)
		}
	}
}

func TestValidateCity_Length(t *testing.T) {
	if _, err := ValidateCity("x", 2, 100); !errors.Is(err, ErrCityTooShort) {
		t.Errorf("short: error = %v, want ErrCityTooShort", err)
	}
	s100 := strings.Repeat("a", 100)
	got, err := ValidateCity(s100, 1, 100)
	if err != nil {
		t.Fatalf("max boundary: err = %v", err)
	}
	if len([]rune(got)) != 100 {
		t.Errorf("max boundary: rune count = %d, want 100", len([]rune(got)))
	}
	if _, err := ValidateCity(s100+"a", 1, 100); !errors.Is(err, ErrCityTooLong) {
		t.Errorf("over max: error = %v, want ErrCityTooLong", err)
	}
	// Bounds are counted in runes, not bytes.
	if _, err := ValidateCity(strings.Repeat("ü", 100), 1, 100); err != nil {
		t.Errorf("multibyte at max: err = %v", err)
	}
}

func TestValidateCity_InvalidChars(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"slash", "sea/ttle"},
		{"backslash", "sea\\ttle"},
		{"question", "sea?ttle"},
		{"hash", "sea#ttle"},
		{"control", "sea\x00ttle"},
		{"angle", "<script>"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateCity(tc.input, 1, 100)
			if !errors.Is(err, ErrCityInvalidChars) {
				t.Errorf("error = %v, want ErrCityInvalidChars", err)
			}
		})
	}
}

func TestValidateCity_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "London", "London"},
		{"with space", "New York", "New York"},
		{"comma", "London,uk", "London,uk"},
		{"hyphen", "Aix-en-Provence", "Aix-en-Provence"},
		{"period apostrophe", "St. John's", "St. John's"},
		{"trimmed", "  Tokyo  ", "Tokyo"},
		{"unicode", "Zürich", "Zürich"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateCity(tc.input, 1, 100)
			if err != nil {
				t.Fatalf("ValidateCity() err = %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateContact(t *testing.T) {
	valid := ContactForm{Name: " Ada ", Email: "ada@example.com", Subject: "Hi", Message: "Forecast looks great"}
	if err := ValidateContact(&valid); err != nil {
		t.Fatalf("valid form: err = %v", err)
	}
	if valid.Name != "Ada" {
		t.Errorf("Name not trimmed: %q", valid.Name)
	}

	tests := []struct {
		name  string
		form  ContactForm
		field string
	}{
		{"missing name", ContactForm{Email: "a@b.co", Subject: "s", Message: "m"}, "name"},
		{"bad email", ContactForm{Name: "n", Email: "not-an-email", Subject: "s", Message: "m"}, "email"},
		{"blank subject", ContactForm{Name: "n", Email: "a@b.co", Subject: "   ", Message: "m"}, "subject"},
		{"missing message", ContactForm{Name: "n", Email: "a@b.co", Subject: "s"}, "message"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateContact(&tc.form)
			if !errors.Is(err, ErrInvalidContact) {
				t.Fatalf("error = %v, want ErrInvalidContact", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not name field %q", err.Error(), tc.field)
			}
		})
	}
}
