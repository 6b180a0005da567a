package temporal

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/effortless-app/effortless-server/internal/timeutil"
)

// Resolver converts natural-language time phrases into absolute instants.
// Phrases are expected in English; the extraction agents translate before
// calling. Resolution is deterministic for a fixed reference time and has no
// side effects.
type Resolver struct {
	parser *when.Parser
}

// NewResolver creates a resolver with English and common rules loaded.
func NewResolver() *Resolver {
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)

	return &Resolver{parser: parser}
}

// Resolve parses phrase relative to now, interpreting bare dates in loc.
// Returns false when no date can be found. The returned time always carries
// the user's location.
func (r *Resolver) Resolve(phrase string, loc *time.Location, now time.Time) (time.Time, bool) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return time.Time{}, false
	}

	// Absolute ISO-style inputs short-circuit the rule engine.
	if t, err := timeutil.ParseDateTime(phrase, loc); err == nil {
		return t.In(loc), true
	}

	result, err := r.parser.Parse(phrase, now.In(loc))
	if err != nil || result == nil {
		return time.Time{}, false
	}

	return result.Time.In(loc), true
}

// ResolveISO is the tool-facing variant: it renders the resolved instant as an
// ISO-8601 string with offset, or returns false when no date is found.
func (r *Resolver) ResolveISO(phrase string, loc *time.Location, now time.Time) (string, bool) {
	t, ok := r.Resolve(phrase, loc, now)
	if !ok {
		return "", false
	}
	return t.Format(time.RFC3339), true
}
