package advisor

import (
	"strconv"
	"strings"
)

// Reply is the structured form of the three-line answer.
type Reply struct {
	Vote       string
	Confidence int
	Reasoning  string
}

// ParseReply extracts VOTE, CONFIDENCE and REASONING lines. ok is false when
// no vote is present.
func ParseReply(text string) (Reply, bool) {
	var r Reply
	for _, line := range strings.Split(text, "\n") {
		key, val, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "VOTE":
			r.Vote = strings.ToUpper(val)
		case "CONFIDENCE":
			if n, err := strconv.Atoi(strings.TrimSuffix(val, "%")); err == nil {
				r.Confidence = n
			}
		case "REASONING":
			r.Reasoning = val
		}
	}
	return r, r.Vote != ""
}
