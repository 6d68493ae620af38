package memory

// MatchGlob reports whether s matches a Redis-style glob pattern.
//
// Supported syntax:
//   - "*" matches any sequence, including the empty one
//   - "?" matches exactly one byte
//   - "[abc]", "[a-z]" and "[^abc]" match one byte from (or outside) a set
//   - "\x" matches x literally
func MatchGlob(pattern, s string) bool {
	if pattern == "*" {
		return true
	}

	p, i := 0, 0
	// Backtrack position for the most recent star.
	starP, starI := -1, 0

	for i < len(s) {
		if p < len(pattern) {
			switch pattern[p] {
			case '*':
				starP, starI = p, i
				p++
				continue
			case '?':
				p++
				i++
				continue
			case '[':
				if next, ok := matchClass(pattern, p, s[i]); next > 0 {
					if ok {
						p = next
						i++
						continue
					}
				} else if s[i] == '[' {
					// Unterminated class: treat '[' literally.
					p++
					i++
					continue
				}
			case '\\':
				if p+1 < len(pattern) && pattern[p+1] == s[i] {
					p += 2
					i++
					continue
				}
			default:
				if pattern[p] == s[i] {
					p++
					i++
					continue
				}
			}
		}
		if starP < 0 {
			return false
		}
		starI++
		p, i = starP+1, starI
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// matchClass evaluates the bracket expression starting at pattern[start]
// against c. It returns the index just past the closing ']' (0 if the class
// is unterminated) and whether c is in the class.
func matchClass(pattern string, start int, c byte) (int, bool) {
	p := start + 1
	negate := false
	if p < len(pattern) && pattern[p] == '^' {
		negate = true
		p++
	}

	matched := false
	first := true
	for p < len(pattern) {
		if pattern[p] == ']' && !first {
			if negate {
				matched = !matched
			}
			return p + 1, matched
		}
		first = false

		lo := pattern[p]
		if lo == '\\' && p+1 < len(pattern) {
			p++
			lo = pattern[p]
		}
		if p+2 < len(pattern) && pattern[p+1] == '-' && pattern[p+2] != ']' {
			hi := pattern[p+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			p += 3
			continue
		}
		if c == lo {
			matched = true
		}
		p++
	}
	return 0, false
}
