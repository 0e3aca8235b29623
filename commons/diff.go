package commons

// Diff describes the change from before to after as a single update
// operation, found by trimming the common prefix and suffix. It reports false
// when the texts are equal.
func Diff(before, after string) (Operation, bool) {
	if before == after {
		return Operation{}, false
	}

	b, a := []rune(before), []rune(after)

	prefix := 0
	for prefix < len(b) && prefix < len(a) && b[prefix] == a[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < len(b)-prefix && suffix < len(a)-prefix && b[len(b)-1-suffix] == a[len(a)-1-suffix] {
		suffix++
	}

	return Operation{
		Type:     OperationUpdate,
		Position: prefix,
		Count:    len(b) - prefix - suffix,
		Value:    string(a[prefix : len(a)-suffix]),
	}, true
}
