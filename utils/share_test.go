package utils

import "testing"

func TestShareBadgeURL_EscapesSegments(t *testing.T) {
	got := ShareBadgeURL("https://learn.example.com", "ada lovelace", "badge/1")
	want := "https://learn.example.com/u/ada%20lovelace/badges/badge%2F1"
	if got != want {
		t.Errorf("ShareBadgeURL = %q, want %q", got, want)
	}
}

func TestTwitterIntentURL(t *testing.T) {
	got := TwitterIntentURL("I leveled up!", "https://learn.example.com/u/ada")
	want := "https://twitter.com/intent/tweet?text=I+leveled+up%21&url=https%3A%2F%2Flearn.example.com%2Fu%2Fada"
	if got != want {
		t.Errorf("TwitterIntentURL = %q, want %q", got, want)
	}
}
