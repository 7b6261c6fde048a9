// Package strs provides string manipulation helpers shared by the descriptor
// and dynamic packages.
package strs

// JSONCamelCase converts a snake_case identifier to a camelCase identifier,
// according to the protobuf JSON specification: underscores are removed and
// the letter after each underscore is capitalized.
func JSONCamelCase(s string) string {
	var b []byte
	var wasUnderscore bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' {
			if wasUnderscore && 'a' <= c && c <= 'z' {
				c -= 'a' - 'A'
			}
			b = append(b, c)
		}
		wasUnderscore = c == '_'
	}
	return string(b)
}

// JSONSnakeCase converts a camelCase identifier to a snake_case identifier,
// according to the protobuf JSON specification: an underscore is inserted
// before each capital letter, which is lowered. This is the inverse of
// JSONCamelCase for identifiers that round-trip losslessly.
func JSONSnakeCase(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			b = append(b, '_', c+'a'-'A')
		} else {
			b = append(b, c)
		}
	}
	return string(b)
}
