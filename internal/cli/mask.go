package cli

import "strings"

// MaskValue hides a secret value, keeping a short suffix for recognition.
//
//	| Length | Format       | Example  |
//	|--------|--------------|----------|
//	| 1-4    | All *        | ****     |
//	| 5-8    | Show last 2  | ******XY |
//	| 9+     | Show last 4  | ****WXYZ |
func MaskValue(value string) string {
	runes := []rune(value)
	length := len(runes)

	switch {
	case length == 0:
		return ""
	case length <= 4:
		return strings.Repeat("*", length)
	case length <= 8:
		return strings.Repeat("*", length-2) + string(runes[length-2:])
	default:
		return strings.Repeat("*", length-4) + string(runes[length-4:])
	}
}
