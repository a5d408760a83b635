package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Lowercase", "CURSO", "curso"},
		{"Diacritics", "Gastronomía y Panadería", "gastronomia y panaderia"},
		{"Punctuation", "¿cómo me inscribo?", "como me inscribo"},
		{"Collapse whitespace", "curso   de\t\tcostura", "curso de costura"},
		{"Trim", "  hola  ", "hola"},
		{"Enye folds to n", "Diseño de Uñas", "diseno de unas"},
		{"Digits kept", "turno 2025", "turno 2025"},
		{"Empty", "", ""},
		{"Only punctuation", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"¿Cuándo EMPIEZA el curso de Electricidad?",
		"gastronomía",
		"  a  b  c  ",
		"",
		"ñandú 123 --- !!!",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("¿Curso de Gastronomía?")
	want := []string{"curso", "de", "gastronomia"}
	if len(got) != len(want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenSetDeduplicates(t *testing.T) {
	set := TokenSet("curso curso CURSO de de")
	if len(set) != 2 {
		t.Errorf("TokenSet size = %d, want 2", len(set))
	}
	if _, ok := set["curso"]; !ok {
		t.Error("missing token curso")
	}
}
