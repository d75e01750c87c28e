package rules

// Limit truncates s to at most width runes. A width of 0 disables the limit.
func Limit(s string, width int) string {
	if width <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == width {
			return s[:i]
		}
		n++
	}
	return s
}

// Split cuts s into consecutive chunks of at most width runes. Whitespace is
// kept where it falls, so words may straddle two chunks.
func Split(s string, width int) []string {
	if s == "" {
		return nil
	}
	if width <= 0 {
		return []string{s}
	}

	var chunks []string
	start, n := 0, 0
	for i := range s {
		if n == width {
			chunks = append(chunks, s[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, s[start:])
}

// SplitSlots spreads s over exactly slots entries of at most width runes,
// padding with empty strings and dropping whatever does not fit.
func SplitSlots(s string, slots, width int) []string {
	chunks := Split(s, width)
	out := make([]string, slots)
	for i := 0; i < slots && i < len(chunks); i++ {
		out[i] = chunks[i]
	}
	return out
}
