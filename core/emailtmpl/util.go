package emailtmpl

import "strings"

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
