package domain

import "testing"

func TestValidVerdict(t *testing.T) {
	valid := []string{"approved", "flagged"}
	for _, v := range valid {
		if !ValidVerdict(v) {
			t.Errorf("ValidVerdict(%q) = false, want true", v)
		}
	}

	invalid := []string{"", "maybe", "APPROVED", "Approved", "rejected"}
	for _, v := range invalid {
		if ValidVerdict(v) {
			t.Errorf("ValidVerdict(%q) = true, want false", v)
		}
	}
}

func TestValidSourceTag(t *testing.T) {
	valid := []string{"static", "scraped", "newsfeed"}
	for _, s := range valid {
		if !ValidSourceTag(s) {
			t.Errorf("ValidSourceTag(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "manual", "Static", "news"}
	for _, s := range invalid {
		if ValidSourceTag(s) {
			t.Errorf("ValidSourceTag(%q) = true, want false", s)
		}
	}
}
