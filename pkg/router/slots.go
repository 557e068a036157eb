package router

import (
	"hash/fnv"
	"strings"

	"github.com/gabrielmiguelok/intakewizard/pkg/core"
)

// extractSlots returns the inner content of every element carrying a
// data-slot attribute, split into plain-text and HTML slots. Parsing is a
// single pass with a depth counter per slot.
func extractSlots(html string) (textSlots, htmlSlots map[string]string) {
	textSlots = make(map[string]string)
	htmlSlots = make(map[string]string)

	const marker = `data-slot="`
	markerLen := len(marker)
	htmlLen := len(html)
	pos := 0

	for pos < htmlLen {
		idx := strings.Index(html[pos:], marker)
		if idx == -1 {
			break
		}

		slotStart := pos + idx + markerLen
		slotEnd := strings.IndexByte(html[slotStart:], '"')
		if slotEnd == -1 {
			pos = slotStart
			continue
		}
		slotID := html[slotStart : slotStart+slotEnd]

		tagStart := pos + idx
		for tagStart > 0 && html[tagStart] != '<' {
			tagStart--
		}

		tagNameEnd := tagStart + 1
		for tagNameEnd < htmlLen && html[tagNameEnd] != ' ' && html[tagNameEnd] != '>' && html[tagNameEnd] != '/' {
			tagNameEnd++
		}
		tagName := html[tagStart+1 : tagNameEnd]

		closeAngle := strings.IndexByte(html[slotStart+slotEnd:], '>')
		if closeAngle == -1 {
			pos = slotStart + slotEnd
			continue
		}
		contentStart := slotStart + slotEnd + closeAngle + 1

		openTag := "<" + tagName
		closeTag := "</" + tagName

		depth := 1
		searchPos := contentStart
		contentEnd := -1

		for depth > 0 && searchPos < htmlLen {
			nextOpen := strings.Index(html[searchPos:], openTag)
			nextClose := strings.Index(html[searchPos:], closeTag)
			if nextClose == -1 {
				break
			}

			if nextOpen != -1 {
				nextOpen += searchPos
			} else {
				nextOpen = htmlLen
			}
			nextClose += searchPos

			if nextOpen < nextClose {
				// "<span" must not count as "<s".
				after := nextOpen + len(openTag)
				if after < htmlLen {
					switch html[after] {
					case ' ', '>', '/', '\t', '\n':
						depth++
					}
				}
				searchPos = after
			} else {
				depth--
				if depth == 0 {
					contentEnd = nextClose
				}
				searchPos = nextClose + len(closeTag)
			}
		}

		if contentEnd != -1 {
			content := strings.TrimSpace(html[contentStart:contentEnd])
			if strings.ContainsAny(content, "<>") {
				htmlSlots[slotID] = content
			} else {
				textSlots[slotID] = content
			}
		}

		pos = searchPos
	}

	return textSlots, htmlSlots
}

func hashSlotContent(content string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(content))
	return h.Sum64()
}

// buildDiff compares html against the slots last sent on session and
// returns the changed ones. A view without slots is sent in full.
func buildDiff(session *LiveViewSession, html string) *core.DiffPayload {
	payload := &core.DiffPayload{
		Slots:     make(map[string]string),
		HTMLSlots: make(map[string]string),
	}

	textSlots, htmlSlots := extractSlots(html)
	newHashes := make(map[string]uint64, len(textSlots)+len(htmlSlots))
	for id, content := range textSlots {
		newHashes[id] = hashSlotContent(content)
	}
	for id, content := range htmlSlots {
		newHashes[id] = hashSlotContent(content)
	}

	// Views without slots are compared as a whole under the empty key.
	full := len(newHashes) == 0
	if full {
		newHashes[""] = hashSlotContent(html)
	}

	prev := session.swapSlotHashes(newHashes)
	if full {
		if prev == nil || prev[""] != newHashes[""] {
			payload.Full = html
		}
	}

	for id, content := range textSlots {
		if prev == nil || prev[id] != newHashes[id] {
			payload.Slots[id] = content
		}
	}
	for id, content := range htmlSlots {
		if prev == nil || prev[id] != newHashes[id] {
			payload.HTMLSlots[id] = content
		}
	}

	if !payload.IsEmpty() {
		payload.Version = session.nextVersion()
	}
	return payload
}
