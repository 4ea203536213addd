package cache

import (
	"fmt"
	"strings"
)

// GenerateKey joins a namespace and id: "ns:id".
func GenerateKey(prefix string, id string) string {
	return prefix + ":" + id
}

// GenerateKeyWithParams appends each param to prefix, colon separated.
// Empty string params are skipped.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		s := fmt.Sprint(p)
		if s == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// BuildPattern creates a glob pattern matching every key under prefix.
func BuildPattern(prefix string) string {
	if strings.HasSuffix(prefix, "*") {
		return prefix
	}
	return prefix + "*"
}
