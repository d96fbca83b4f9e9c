package cache

import (
	"strings"

	"github.com/gobwas/glob"
)

// compilePattern compiles a Redis MATCH pattern. No separators are declared,
// so '*' and '?' also match '/', as they do in Redis. Redis "[^...]" maps to
// "[!...]" and braces stay literal.
func compilePattern(pattern string) (glob.Glob, error) {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			b.WriteByte(c)
			b.WriteByte(pattern[i+1])
			i++
		case c == '[' && !inClass:
			inClass = true
			b.WriteByte(c)
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				b.WriteByte('!')
				i++
			}
		case c == ']' && inClass:
			inClass = false
			b.WriteByte(c)
		case (c == '{' || c == '}') && !inClass:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return glob.Compile(b.String())
}
