package enrich

import (
	"github.com/Artufe/bravo-tango-bravo/internal/entity"
	"github.com/Artufe/bravo-tango-bravo/internal/service/extract"
	"github.com/Artufe/bravo-tango-bravo/internal/service/match"
	"github.com/Artufe/bravo-tango-bravo/internal/service/scoring"
)

type candidate struct {
	profile extract.Profile
	result  entity.OrganicResult
}

// Employees turns the text search results for a company into its ranked staff.
// ok is false when no extracted affiliation matched target closely enough.
func Employees(matcher *match.Matcher, target string, results []entity.OrganicResult) ([]entity.Employee, match.Result, bool) {
	candidates := make([]candidate, 0, len(results))
	affiliations := make([]string, 0, len(results))
	for _, r := range results {
		if r.Type != entity.ResultTypeOrganic {
			continue
		}
		profile := extract.Classify(r.Title, r.PreSnippet)
		if !profile.OK() {
			continue
		}
		candidates = append(candidates, candidate{profile: profile, result: r})
		affiliations = append(affiliations, profile.Company)
	}

	best, ok := matcher.Select(target, affiliations)
	if !ok {
		return nil, best, false
	}

	var employees []entity.Employee
	for _, c := range candidates {
		if c.profile.Company != best.Candidate {
			continue
		}
		emp := entity.NewEmployee(c.profile.Name)
		emp.Position = c.profile.Position
		emp.Company = c.profile.Company
		emp.RankScore = scoring.RankScore(c.result.RankAbsolute, c.profile.Position)
		emp.SearchTitle = c.result.Title
		emp.LinkedInURL = c.result.URL
		emp.PreSnippet = c.result.PreSnippet
		employees = append(employees, emp)
	}
	entity.SortEmployees(employees)
	return employees, best, true
}
