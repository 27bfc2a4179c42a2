package normalize

import "testing"

func TestEmail(t *testing.T) {
	in := "  John.DOE@Example.COM  "
	want := "john.doe@example.com"
	got := Email(in)
	if got != want {
		t.Fatalf("Normalize.Email(%q) = %q, want %q", in, got, want)
	}
}

func TestIDAndText(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"id keeps case", ID, " 65aBcD ", "65aBcD"},
		{"id blank", ID, "   ", ""},
		{"text keeps inner newlines", Text, "\n hi\nthere \t", "hi\nthere"},
	}
	for _, tc := range cases {
		if got := tc.fn(tc.in); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
