package extract

import "strings"

// Shape names which signals a profile was recovered from.
type Shape int

const (
	Unresolved Shape = iota
	// BothSignals: name from the title, position and company from the snippet.
	BothSignals
	// SnippetOnly: "location · position · company" snippet, name unknown.
	SnippetOnly
	// TitleOnly: "name - position - company" title.
	TitleOnly
)

func (s Shape) String() string {
	switch s {
	case BothSignals:
		return "both_signals"
	case SnippetOnly:
		return "snippet_only"
	case TitleOnly:
		return "title_only"
	default:
		return "unresolved"
	}
}

const (
	titleSeparator   = " - "
	snippetSeparator = " · "
)

var linkedInSuffixes = []string{" | LinkedIn", " - LinkedIn"}

// Profile is a person recovered from one search result. Fields not provided by
// the shape are empty.
type Profile struct {
	Shape    Shape
	Name     string
	Position string
	Company  string
}

// OK reports whether the profile names an affiliated company.
func (p Profile) OK() bool {
	return p.Company != ""
}

// Classify recovers (name, position, company) from a result title and pre-snippet.
// The first matching shape wins:
//
//	snippet has 3 parts and title has 2 or more  -> BothSignals
//	snippet has 3 or more parts                  -> SnippetOnly
//	title has exactly 3 parts                    -> TitleOnly
func Classify(title, preSnippet string) Profile {
	title = StripLinkedInSuffix(title)
	titleParts := split(title, titleSeparator)
	snippetParts := split(preSnippet, snippetSeparator)

	switch {
	case len(snippetParts) == 3 && len(titleParts) >= 2:
		return Profile{
			Shape:    BothSignals,
			Name:     titleParts[0],
			Position: snippetParts[1],
			Company:  snippetParts[2],
		}
	case len(snippetParts) >= 3:
		return Profile{
			Shape:    SnippetOnly,
			Position: snippetParts[1],
			Company:  snippetParts[len(snippetParts)-1],
		}
	case len(titleParts) == 3:
		return Profile{
			Shape:    TitleOnly,
			Name:     titleParts[0],
			Position: titleParts[1],
			Company:  titleParts[2],
		}
	default:
		return Profile{Shape: Unresolved}
	}
}

// StripLinkedInSuffix removes a trailing " | LinkedIn" or " - LinkedIn".
func StripLinkedInSuffix(title string) string {
	title = strings.TrimSpace(title)
	for _, suffix := range linkedInSuffixes {
		if strings.HasSuffix(title, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(title, suffix))
		}
	}
	return title
}

func split(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
