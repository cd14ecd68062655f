package core

import "strings"

// usStateCodes maps lowercase US state names, plus DC, to postal codes.
var usStateCodes = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"district of columbia": "DC",
	"florida":              "FL",
	"georgia":              "GA",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new hampshire":        "NH",
	"new jersey":           "NJ",
	"new mexico":           "NM",
	"new york":             "NY",
	"north carolina":       "NC",
	"north dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"rhode island":         "RI",
	"south carolina":       "SC",
	"south dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virginia":             "VA",
	"washington":           "WA",
	"west virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
}

// knownStateCodes is the set of postal codes in usStateCodes.
var knownStateCodes = func() map[string]bool {
	codes := make(map[string]bool, len(usStateCodes))
	for _, code := range usStateCodes {
		codes[code] = true
	}
	return codes
}()

// NormalizeUsState rewrites a US state name as its postal code and
// upper-cases codes already in that form. Anything else is returned trimmed
// but otherwise unchanged.
func NormalizeUsState(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if code, ok := usStateCodes[strings.ToLower(s)]; ok {
		return code
	}
	if upper := strings.ToUpper(s); knownStateCodes[upper] {
		return upper
	}
	return s
}
