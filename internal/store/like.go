package store

import "strings"

// LikePrefix returns a SQL LIKE pattern matching keys that start with prefix,
// using backslash as the escape character. Key prefixes such as "fetch_"
// contain LIKE wildcards that must match literally.
func LikePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
