package parser

import "testing"

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"age > 18":                   "age > 18",
		"  age   >  18  ":            "age > 18",
		"age\t>\n18":                 "age > 18",
		"( age > 18 )":               "(age > 18)",
		"((  a>1 ) )":                "((a>1))",
		"( a > 1 AND  (b<2 ) )":      "(a > 1 AND (b<2))",
		"":                           "",
		"   ":                        "",
		"name = 'two  words'":        "name = 'two words'",
		"a>1 \r\n OR \t b>2":         "a>1 OR b>2",
		"x = (  1 )":                 "x = (1)",
		"(\n\tage > 18\n) AND b > 1": "(age > 18) AND b > 1",
	}

	for input, expected := range tests {
		if actual := Normalize(input); actual != expected {
			t.Fatalf("Normalize(%q) = %q, want %q", input, actual, expected)
		}
	}
}
