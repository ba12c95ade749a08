package payload

import (
	"fmt"
	"regexp"
	"time"
)

// UnknownOperation is the operation code assigned to payloads whose filenames
// do not match the expected pattern. They are still processed, but carry no
// dedup identity.
const UnknownOperation = "Unknown"

// Parsed holds the fields embedded in a payload filename.
type Parsed struct {
	// Timestamp is the 14-digit creation stamp (YYYYMMDDHHMMSS). Fixed-width
	// digits, so lexicographic order equals chronological order.
	Timestamp     string
	OperationCode string
	// WeekKey is the processing week date (YYYY-MM-DD).
	WeekKey string
}

// DedupKey identifies the group a parsed payload deduplicates within.
type DedupKey struct {
	OperationCode string
	WeekKey       string
}

// Key returns the dedup identity of a parsed payload.
func (p Parsed) Key() DedupKey {
	return DedupKey{OperationCode: p.OperationCode, WeekKey: p.WeekKey}
}

// Time decodes the embedded creation stamp. Returns an error when the digits
// do not form a valid UTC timestamp.
func (p Parsed) Time() (time.Time, error) {
	return time.Parse("20060102150405", p.Timestamp)
}

// Parser extracts payload fields from filenames of the form
// <prefix>_<14 digits>_<operation code>_<YYYY-MM-DD>.json. The operation code
// is matched non-greedily so it can contain underscores but never swallows
// the trailing week date.
type Parser struct {
	prefix string
	re     *regexp.Regexp
}

// NewParser builds a parser for the given filename prefix.
func NewParser(prefix string) *Parser {
	pattern := fmt.Sprintf(`^%s_(\d{14})_(.+?)_(\d{4}-\d{2}-\d{2})\.json$`, regexp.QuoteMeta(prefix))
	return &Parser{prefix: prefix, re: regexp.MustCompile(pattern)}
}

// Prefix returns the filename prefix this parser matches.
func (p *Parser) Prefix() string {
	return p.prefix
}

// Parse extracts the embedded fields from a payload base name. The second
// return value reports whether the name matched; callers treat non-matching
// names as operation code Unknown and exclude them from dedup grouping.
func (p *Parser) Parse(name string) (Parsed, bool) {
	match := p.re.FindStringSubmatch(name)
	if match == nil {
		return Parsed{}, false
	}
	return Parsed{
		Timestamp:     match[1],
		OperationCode: match[2],
		WeekKey:       match[3],
	}, true
}

// OperationCode returns the embedded operation code, or UnknownOperation for
// names that do not match the payload pattern.
func (p *Parser) OperationCode(name string) string {
	parsed, ok := p.Parse(name)
	if !ok {
		return UnknownOperation
	}
	return parsed.OperationCode
}
