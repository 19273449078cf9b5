package pattern

// Filter removes every substring of line matched by any pattern in s.
// Patterns are applied one after another in load order.
func (s *Set) Filter(line string) string {
	if s == nil {
		return line
	}
	for _, re := range s.compiled {
		line = re.ReplaceAllLiteralString(line, "")
	}
	return line
}
