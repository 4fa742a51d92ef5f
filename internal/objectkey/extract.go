package objectkey

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	folderPattern    = regexp.MustCompile(`(?i)/emails_v2/([^/]+)/`)
	documentPattern  = regexp.MustCompile(`(?i)/emails_v2/([^/]+)/batch\.json`)
	timestampPattern = regexp.MustCompile(`[0-9]{4}-[0-9]{2}-[0-9]{2}_[0-9]{6}`)
)

// minCleanIDLength is the shortest bare token accepted as a batch id.
const minCleanIDLength = 8

// ExtractBatchID pulls a batch id out of operator input. It accepts a batch
// folder URL, a batch.json URL, a YYYY-MM-DD_HHMMSS token anywhere in the input,
// or a bare id of at least eight characters without slashes.
func ExtractBatchID(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for _, rx := range []*regexp.Regexp{folderPattern, documentPattern} {
		if m := rx.FindStringSubmatch(s); len(m) == 2 && m[1] != "" {
			if decoded, err := url.PathUnescape(m[1]); err == nil {
				return decoded, true
			}
			return m[1], true
		}
	}
	if m := timestampPattern.FindString(s); m != "" {
		return m, true
	}
	if !strings.Contains(s, "/") && len(s) >= minCleanIDLength {
		return s, true
	}
	return "", false
}
