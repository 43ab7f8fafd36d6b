package database

import (
	"fmt"
	"strings"
)

// ConstructDatabaseURL appends databaseName to baseURL, keeping any query
// string intact and defaulting sslmode to disable. An empty databaseName
// returns baseURL unchanged.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	base, query, hasQuery := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	base = strings.TrimRight(base, "/")

	url := fmt.Sprintf("%s/%s", base, databaseName)
	if hasQuery && query != "" {
		url = fmt.Sprintf("%s?%s", url, query)
	}

	if !strings.Contains(url, "sslmode=") {
		separator := "&"
		if !strings.Contains(url, "?") {
			separator = "?"
		}
		url = fmt.Sprintf("%s%ssslmode=disable", url, separator)
	}

	return url
}
