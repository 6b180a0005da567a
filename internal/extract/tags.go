package extract

import (
	"strings"

	"github.com/effortless-app/effortless-server/internal/database"
)

// ResolveTagIDs maps model-suggested tag names onto the user's known tags by
// exact name match. Suggested names with no match are silently discarded; ids
// never originate from the model. The result follows the order of known, with
// at most one entry per tag.
func ResolveTagIDs(known []database.Tag, suggested []string) []int64 {
	if len(known) == 0 || len(suggested) == 0 {
		return nil
	}

	wanted := make(map[string]bool, len(suggested))
	for _, name := range suggested {
		name = strings.TrimSpace(name)
		if name != "" {
			wanted[name] = true
		}
	}

	var ids []int64
	for _, tag := range known {
		if wanted[tag.Name] {
			ids = append(ids, tag.ID)
		}
	}
	return ids
}

// TagNames returns the names of the given tags, for prompt construction.
func TagNames(tags []database.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}
