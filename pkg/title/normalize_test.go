package title

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"The Matrix", "matrix"},
		{"A Quiet Place", "quiet place"},
		{"An American Werewolf", "american werewolf"},
		{"Fast & Furious", "fast and furious"},
		{"Léon: The Professional", "leon professional"},
		{"Spider-Man: No Way Home", "spider man no way home"},
		{"Rocky III", "rocky 3"},
		{"  Extra   Spaces  ", "extra spaces"},
		{"M*A*S*H", "mash"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Clean(tt.input)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeRomanNumerals(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"rocky ii", "rocky 2"},
		{"star wars episode iv", "star wars episode 4"},
		{"i robot", "i robot"},
		{"american history x", "american history x"},
		{"vii days", "vii days"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeRomanNumerals(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeRomanNumerals(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("identical after cleaning", func(t *testing.T) {
		if got := Similarity("The Matrix", "Matrix"); got != 1.0 {
			t.Errorf("Similarity = %v, want 1.0", got)
		}
	})

	t.Run("close titles score high", func(t *testing.T) {
		got := Similarity("The Office (US)", "The Office US")
		if got < 0.9 {
			t.Errorf("Similarity = %v, want >= 0.9", got)
		}
	})

	t.Run("unrelated titles score low", func(t *testing.T) {
		got := Similarity("Breaking Bad", "The Great British Bake Off")
		if got > 0.7 {
			t.Errorf("Similarity = %v, want <= 0.7", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := Similarity("", "Something"); got != 0.0 {
			t.Errorf("Similarity = %v, want 0.0", got)
		}
	})
}
