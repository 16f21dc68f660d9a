package annotation

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name        string
		comment     string
		expected    map[string]Value
		expectedErr error
	}{
		{
			name:     "discrete",
			comment:  "[&location=UK]",
			expected: map[string]Value{"location": Discrete("UK")},
		},
		{
			name:     "double quoted discrete",
			comment:  `[&location="UK"]`,
			expected: map[string]Value{"location": Discrete("UK")},
		},
		{
			name:     "empty quotes",
			comment:  `[&location=""]`,
			expected: map[string]Value{"location": Discrete("")},
		},
		{
			name:     "quoted key",
			comment:  "[&'location'=UK]",
			expected: map[string]Value{"location": Discrete("UK")},
		},
		{
			name:     "doubled quote",
			comment:  "[&name='O''Brien']",
			expected: map[string]Value{"name": Discrete("O'Brien")},
		},
		{
			name:     "bare key",
			comment:  "[&R]",
			expected: map[string]Value{"R": Boolean(true)},
		},
		{
			name:     "bracketed key and continuous",
			comment:  "[&location[1]=UK,lat=0.0]",
			expected: map[string]Value{"location[1]": Discrete("UK"), "lat": Continuous(0)},
		},
		{
			name:     "scientific notation",
			comment:  "[&rate=1.5E-3, height=2e2]",
			expected: map[string]Value{"rate": Continuous(0.0015), "height": Continuous(200)},
		},
		{
			name:     "numeric fallback",
			comment:  "[&date=2020-01-01]",
			expected: map[string]Value{"date": Discrete("2020-01-01")},
		},
		{
			name:     "booleans",
			comment:  `[&a=true,b=false,c="true"]`,
			expected: map[string]Value{"a": Boolean(true), "b": Boolean(false), "c": Discrete("true")},
		},
		{
			name:     "set",
			comment:  "[&height_95%_HPD={0.1,0.25},states={A,'B C'}]",
			expected: map[string]Value{
				"height_95%_HPD": Set{Continuous(0.1), Continuous(0.25)},
				"states":         Set{Discrete("A"), Discrete("B C")},
			},
		},
		{
			name:     "empty set",
			comment:  "[&jumps={}]",
			expected: map[string]Value{"jumps": Set{}},
		},
		{
			name:    "markov jump",
			comment: "[&location={{0.5,UK,US}}]",
			expected: map[string]Value{
				"location": Set{MarkovJump{Time: 0.5, Source: "UK", Destination: "US"}},
			},
		},
		{
			name:    "several markov jumps",
			comment: `[&history={{1.5,"A","B"},{0.25,B,C}}]`,
			expected: map[string]Value{
				"history": Set{
					MarkovJump{Time: 1.5, Source: "A", Destination: "B"},
					MarkovJump{Time: 0.25, Source: "B", Destination: "C"},
				},
			},
		},
		{
			name:    "mixed nested set stays generic",
			comment: "[&x={{0.5,UK,US},{1,2}}]",
			expected: map[string]Value{
				"x": Set{
					Set{Continuous(0.5), Discrete("UK"), Discrete("US")},
					Set{Continuous(1), Continuous(2)},
				},
			},
		},
		{
			name:     "empty annotation",
			comment:  "[&]",
			expected: map[string]Value{},
		},
		{
			name:        "not an annotation",
			comment:     "[a plain comment]",
			expectedErr: ErrInvalidAnnotation,
		},
		{
			name:        "missing value",
			comment:     "[&location=]",
			expectedErr: ErrInvalidAnnotation,
		},
		{
			name:        "unterminated set",
			comment:     "[&s={1,2]",
			expectedErr: ErrInvalidAnnotation,
		},
		{
			name:        "unterminated quote",
			comment:     "[&s='abc]",
			expectedErr: ErrUnterminatedQuote,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			result, err := Parse(test.comment)
			switch {
			case !errors.Is(err, test.expectedErr):
				t.Fatalf("Failed with unexpected error %+v", err)
			case err != nil:
				t.Logf("%s", err)
			case !reflect.DeepEqual(result, test.expected):
				t.Errorf("result != expected, %v != %v", result, test.expected)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	testCases := []struct {
		input       string
		expected    Value
		expectedErr error
	}{
		{input: "UK", expected: Discrete("UK")},
		{input: " 0.25 ", expected: Continuous(0.25)},
		{input: "-3", expected: Continuous(-3)},
		{input: `"United Kingdom"`, expected: Discrete("United Kingdom")},
		{input: "{1,2}", expected: Set{Continuous(1), Continuous(2)}},
		{input: "a,b", expectedErr: ErrInvalidAnnotation},
		{input: "", expectedErr: ErrInvalidAnnotation},
	}
	for _, test := range testCases {
		t.Run(test.input, func(t *testing.T) {
			v, err := ParseValue(test.input)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("Failed with unexpected error %+v", err)
			}
			if err == nil && !reflect.DeepEqual(v, test.expected) {
				t.Errorf("result != expected, %#v != %#v", v, test.expected)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	testCases := []struct {
		value    Value
		expected string
	}{
		{value: Discrete("UK"), expected: `"UK"`},
		{value: Discrete(`say "hi"`), expected: `"say ""hi"""`},
		{value: Continuous(0.1), expected: "0.1"},
		{value: Boolean(false), expected: "false"},
		{value: Set{Discrete("A"), Continuous(2)}, expected: `{"A",2}`},
		{value: MarkovJump{Time: 0.5, Source: "UK", Destination: "US"}, expected: `{0.5,"UK","US"}`},
	}
	for _, test := range testCases {
		if s := test.value.String(); s != test.expected {
			t.Errorf("%#v: %s != %s", test.value, s, test.expected)
		}
	}
}

// Values written by String must read back unchanged.
func TestStringRoundTrip(t *testing.T) {
	values := []Value{
		Discrete("Homo sapiens"),
		Discrete("a,b]{c}"),
		Discrete("it's"),
		Continuous(1.25e-7),
		Boolean(true),
		Set{Discrete("x"), Continuous(3)},
		Set{MarkovJump{Time: 2, Source: "a b", Destination: "c"}},
	}
	for _, v := range values {
		parsed, err := ParseValue(v.String())
		if err != nil {
			t.Fatalf("could not parse %s: %s", v, err)
		}
		if !reflect.DeepEqual(parsed, v) {
			t.Errorf("round trip changed value, %#v != %#v", parsed, v)
		}
	}
}

func TestReadQuoted(t *testing.T) {
	testCases := []struct {
		input       string
		quote       byte
		expected    string
		rest        string
		expectedErr error
	}{
		{input: "here a *':1", quote: '\'', expected: "here a *", rest: ":1"},
		{input: "234] ',", quote: '\'', expected: "234] ", rest: ","},
		{input: "it''s'", quote: '\'', expected: "it's", rest: ""},
		{input: `a""b"x`, quote: '"', expected: `a"b`, rest: "x"},
		{input: "never closed", quote: '\'', expectedErr: ErrUnterminatedQuote},
	}
	for _, test := range testCases {
		t.Run(test.input, func(t *testing.T) {
			r := strings.NewReader(test.input)
			s, err := ReadQuoted(r, test.quote)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("Failed with unexpected error %+v", err)
			}
			if err != nil {
				return
			}
			if s != test.expected {
				t.Errorf("result != expected, %q != %q", s, test.expected)
			}
			rest := test.input[len(test.input)-r.Len():]
			if rest != test.rest {
				t.Errorf("unread input %q != %q", rest, test.rest)
			}
		})
	}
}

func TestQuoteLabel(t *testing.T) {
	testCases := map[string]string{
		"Tip0":     "Tip0",
		"here a *": "'here a *'",
		"234] ":    "'234] '",
		"it's":     "'it''s'",
		"":         "''",
	}
	for in, expected := range testCases {
		if out := QuoteLabel(in); out != expected {
			t.Errorf("QuoteLabel(%q) = %q, expected %q", in, out, expected)
		}
	}
}

func TestQuoteKey(t *testing.T) {
	testCases := map[string]string{
		"location":     "location",
		"location[1]":  "location[1]",
		"height_95%":   "height_95%",
		"two words":    `"two words"`,
		"a]b[":         `"a]b["`,
		"open[":        `"open["`,
		`say "x"`:      `"say ""x"""`,
		"":             `""`,
	}
	for in, expected := range testCases {
		out := QuoteKey(in)
		if out != expected {
			t.Errorf("QuoteKey(%q) = %q, expected %q", in, out, expected)
			continue
		}
		parsed, err := Parse("[&" + out + "=1]")
		if err != nil {
			t.Errorf("could not read back key %q: %s", out, err)
		} else if _, ok := parsed[in]; !ok {
			t.Errorf("key %q read back as %v", in, parsed)
		}
	}
}
