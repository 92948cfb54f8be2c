package favorites

import "strconv"

// Query keys name the cached read results; tags group them for invalidation.
// Every entry carries tagAll, so set-wide mutations drop the whole cache,
// while per-record entries additionally carry their id tag.
const (
	keyList  = "list"
	keyCount = "count"

	tagAll = "all"
)

func keyIsFavorite(id int64) string {
	return "is:" + strconv.FormatInt(id, 10)
}

func keyGet(id int64) string {
	return "get:" + strconv.FormatInt(id, 10)
}

func tagID(id int64) string {
	return "id:" + strconv.FormatInt(id, 10)
}

// mutationTags lists the tags staled by a write against one record: the
// set-wide queries plus the record's own point queries.
func mutationTags(id int64) []string {
	return []string{tagAll, tagID(id)}
}
