package web

import (
	"bytes"
	"strings"
)

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte(`id="root"`),
	[]byte(`id="app"`),
	[]byte("data-reactroot"),
}

// defaultMinHTMLBytes is the thin-document threshold used when no limit is
// configured.
const defaultMinHTMLBytes = 2048

// shouldRender decides whether the static body is worth rendering in a
// browser: empty documents, known SPA shells, and thin script-heavy pages.
// Bodies at or above minBytes are considered substantial enough to use as-is.
func shouldRender(body []byte, minBytes int) bool {
	if minBytes <= 0 {
		minBytes = defaultMinHTMLBytes
	}
	if len(body) == 0 {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return len(body) < minBytes && scriptDensityHigh(body)
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	coverage := 0
	pos := 0

	for {
		relStart := strings.Index(lower[pos:], openTag)
		if relStart == -1 {
			break
		}
		start := pos + relStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed tag: count the rest of the document.
			coverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relEnd := strings.Index(lower[contentStart:], closeTag)
		var next int
		if relEnd == -1 {
			next = total
		} else {
			next = contentStart + relEnd + len(closeTag)
		}

		coverage += next - start
		pos = next
	}

	if coverage == 0 {
		return false
	}
	return coverage*100/total >= 25
}
