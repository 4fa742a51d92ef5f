package batch

import (
	"strings"

	"contentstudio/internal/objectkey"
)

// documentCandidates lists the filenames a batch document has been written
// under, most preferred first. Matching is on the final path segment and
// ignores case.
var documentCandidates = []string{
	"batch.json",
	"batch_v2.json",
	"_batch.json",
	"manifest.json",
}

// pickDocument chooses the batch document among the JSON keys of a folder
// listing. Without a candidate match the first JSON key in listing order wins.
func pickDocument(keys []string) (string, bool) {
	var jsons []string
	for _, key := range keys {
		if objectkey.IsJSON(key) {
			jsons = append(jsons, key)
		}
	}
	if len(jsons) == 0 {
		return "", false
	}
	for _, name := range documentCandidates {
		for _, key := range jsons {
			if strings.EqualFold(objectkey.BaseName(key), name) {
				return key, true
			}
		}
	}
	return jsons[0], true
}
