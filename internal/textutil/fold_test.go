package textutil

import "testing"

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Parafusão":         "parafusao",
		"ÁGUA DESTILADA":    "agua destilada",
		"luva nitrílica":    "luva nitrilica",
		"sem acento":        "sem acento",
		"AÇÚCAR cristal":    "acucar cristal",
		"côco ralado único": "coco ralado unico",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchesAll(t *testing.T) {
	text := "PARAFUSO SEXTAVADO AÇO INOX M8"

	cases := []struct {
		terms []string
		want  bool
	}{
		{[]string{"parafuso"}, true},
		{[]string{"aço", "inox"}, true},
		{[]string{"aco", "inox"}, true},
		{[]string{"PARAFUSO", "m8"}, true},
		{[]string{"parafuso", "latão"}, false},
		{[]string{"porca"}, false},
		{[]string{"", "inox"}, true},
		{nil, true},
	}
	for _, tc := range cases {
		if got := MatchesAll(text, tc.terms); got != tc.want {
			t.Errorf("MatchesAll(%v) = %v, want %v", tc.terms, got, tc.want)
		}
	}
}
