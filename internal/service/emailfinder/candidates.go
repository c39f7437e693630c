package emailfinder

import (
	"strings"
	"unicode"
)

// Candidates returns local parts to probe for a person, most common layouts
// first. Names are lowercased and stripped of anything but letters and digits.
// An empty first name yields no candidates.
func Candidates(first, last string) []string {
	first = localPart(first)
	last = localPart(last)
	if first == "" {
		return nil
	}

	f := string([]rune(first)[:1])
	if last == "" {
		return distinct([]string{first, f})
	}
	l := string([]rune(last)[:1])

	return distinct([]string{
		first,
		f + last,
		first + "." + last,
		first + last,
		last,
		first + l,
		f + "." + last,
		last + f,
		first + "_" + last,
		first + "-" + last,
		last + "." + first,
		last + "_" + first,
		last + "-" + first,
		last + first,
		f + "_" + last,
		f + "-" + last,
		first + "." + l,
		first + "_" + l,
		first + "-" + l,
		f + l,
		l + "." + first,
		l + first,
		last + "." + f,
		last + "_" + f,
		f,
	})
}

func localPart(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
