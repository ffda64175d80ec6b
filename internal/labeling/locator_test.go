package labeling

import "testing"

func TestFindWordStartingWith(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		prefix string
		want   int
	}{
		{"discount in middle", "дайте скидку пожалуйста", "скидк", 2},
		{"no match", "привет как дела", "скидк", NotFound},
		{"empty text", "", "скидк", NotFound},
		{"case insensitive", "Дайте СКИДКУ", "скидк", 2},
		{"exact token", "нужна скидк", "скидк", 2},
		{"prefix longer than tokens", "да нет", "скидк", NotFound},
		{"mid-word does not match", "нескидка скидка", "скидк", 2},
		{"first match only", "скидка и ещё скидка", "скидк", 1},
		{"leading punctuation skipped", "дайте «скидку»", "скидк", 2},
		{"trailing punctuation kept", "скидку, пожалуйста", "скидк", 1},
		{"literal metacharacters", "price a.b+ here", "a.b+", 2},
		{"metacharacters not patterns", "price axb here", "a.b", NotFound},
		{"punctuation prefix", "save -5% now", "-5", 2},
		{"extra whitespace", "  one\t\ttwo \n скидки ", "скидк", 3},
		{"empty prefix matches first token", "a b", "", 1},
		{"latin", "Ask for a Discount", "disc", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindWordStartingWith(tt.text, tt.prefix); got != tt.want {
				t.Errorf("FindWordStartingWith(%q, %q) = %d, want %d", tt.text, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestFindWordStartingWith_absentPrefixNeverMatches(t *testing.T) {
	texts := []string{"a b c", "привет мир", "one two three four", "x"}
	for _, text := range texts {
		if got := FindWordStartingWith(text, "скидк"); got != NotFound {
			t.Errorf("text %q: got %d, want NotFound", text, got)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  a  b\tc\n")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Tokenize = %q", got)
	}
	if len(Tokenize("")) != 0 {
		t.Error("empty text should have no tokens")
	}
}
