package domain

// DefaultItemLimit is how many recent hits a keyword feed carries.
const DefaultItemLimit = 50

// Format selects the feed serialization.
type Format string

const (
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
	FormatJSON Format = "json"
)

// ParseFormat maps a query value to a Format, defaulting to RSS.
func ParseFormat(s string) Format {
	switch Format(s) {
	case FormatAtom, FormatJSON:
		return Format(s)
	default:
		return FormatRSS
	}
}
