package query

import "bytes"

const footer = "]}"

// Repair returns data with the closing footer appended when it is missing,
// as happens when the owning process never disabled its session. Trailing
// whitespace and a dangling comma are trimmed first. Complete documents are
// returned unchanged.
func Repair(data []byte) []byte {
	trimmed := bytes.TrimRight(data, " \t\r\n")
	if len(trimmed) == 0 || bytes.HasSuffix(trimmed, []byte(footer)) {
		return data
	}
	trimmed = bytes.TrimRight(trimmed, ", \t\r\n")

	out := make([]byte, 0, len(trimmed)+len(footer))
	out = append(out, trimmed...)
	return append(out, footer...)
}

// Complete reports whether data already ends with the footer.
func Complete(data []byte) bool {
	return bytes.HasSuffix(bytes.TrimRight(data, " \t\r\n"), []byte(footer))
}
