package entity

import (
	"sort"
	"strings"
)

// Employee is a person attributed to a company from a search result.
type Employee struct {
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
	// Company is the affiliation text as extracted, not the target company name.
	Company   string `json:"company"`
	Email     string `json:"email"`
	RankScore int    `json:"rank_score"`

	SearchTitle string `json:"search_title"`
	LinkedInURL string `json:"linkedin_url"`
	PreSnippet  string `json:"pre_snippet,omitempty"`
}

// NewEmployee builds an employee and derives first and last names from fullName.
func NewEmployee(fullName string) Employee {
	first, last := SplitName(fullName)
	return Employee{
		FullName:  strings.TrimSpace(fullName),
		FirstName: first,
		LastName:  last,
	}
}

// SplitName returns the first and last whitespace separated tokens of a name.
// The last name is empty when the name has a single token.
func SplitName(fullName string) (string, string) {
	tokens := strings.Fields(fullName)
	if len(tokens) == 0 {
		return "", ""
	}
	first := tokens[0]
	last := tokens[len(tokens)-1]
	if first == last {
		last = ""
	}
	return first, last
}

// SortEmployees orders employees by descending rank score, keeping discovery order on ties.
func SortEmployees(employees []Employee) {
	sort.SliceStable(employees, func(i, j int) bool {
		return employees[i].RankScore > employees[j].RankScore
	})
}
