package entity

// PlaceResult is a raw hit from the place search provider.
type PlaceResult struct {
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Phone        string   `json:"phone"`
	Category     string   `json:"category"`
	Address      string   `json:"address"`
	AddressInfo  Address  `json:"address_info"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	RankAbsolute int      `json:"rank_absolute"`
	Rating       *float64 `json:"rating"`
	Votes        *int     `json:"votes"`
	MainImage    string   `json:"main_image"`
}

// ResultTypeOrganic marks non-paid text search results.
const ResultTypeOrganic = "organic"

// OrganicResult is a raw item from the text search provider.
type OrganicResult struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	PreSnippet   string `json:"pre_snippet"`
	URL          string `json:"url"`
	RankAbsolute int    `json:"rank_absolute"`
}

// Verdict classifies a mailbox validation response.
type Verdict int

const (
	VerdictUndeliverable Verdict = iota
	VerdictDeliverable
	VerdictAcceptAll
)

func (v Verdict) String() string {
	switch v {
	case VerdictDeliverable:
		return "deliverable"
	case VerdictAcceptAll:
		return "accept_all"
	default:
		return "undeliverable"
	}
}

// Validation is the outcome of probing a single mailbox.
type Validation struct {
	Email   string  `json:"email"`
	Verdict Verdict `json:"verdict"`
	Code    string  `json:"code"`
	Reason  string  `json:"reason,omitempty"`
}

// PlacePage is one page of place search results.
type PlacePage struct {
	Results       []PlaceResult
	NextPageToken string
}
