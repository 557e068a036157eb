package testing

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
)

// HTMLAssert provides substring-level assertions over rendered HTML.
type HTMLAssert struct {
	t    testing.TB
	html string
}

// NewHTMLAssert creates a new HTML assertion helper.
func NewHTMLAssert(t testing.TB, html string) *HTMLAssert {
	return &HTMLAssert{t: t, html: html}
}

// HasElement asserts that the HTML contains a tag and every given attribute
// fragment.
func (ha *HTMLAssert) HasElement(tag string, attrs ...string) *HTMLAssert {
	ha.t.Helper()

	if !strings.Contains(ha.html, "<"+tag) {
		ha.t.Errorf("Element <%s> not found in HTML:\n%s", tag, ha.html)
		return ha
	}
	for _, attr := range attrs {
		if !strings.Contains(ha.html, attr) {
			ha.t.Errorf("Attribute %q not found in HTML:\n%s", attr, ha.html)
		}
	}
	return ha
}

// HasText asserts that the HTML contains specific text.
func (ha *HTMLAssert) HasText(text string) *HTMLAssert {
	ha.t.Helper()
	if !strings.Contains(ha.html, text) {
		ha.t.Errorf("Text %q not found in HTML:\n%s", text, ha.html)
	}
	return ha
}

// HasClass asserts that some element carries class.
func (ha *HTMLAssert) HasClass(class string) *HTMLAssert {
	ha.t.Helper()
	pattern := fmt.Sprintf(`class="([^"]* )?%s( [^"]*)?"`, regexp.QuoteMeta(class))
	if !regexp.MustCompile(pattern).MatchString(ha.html) {
		ha.t.Errorf("No element with class %q", class)
	}
	return ha
}

// HasID asserts that the HTML contains an element with a specific ID.
func (ha *HTMLAssert) HasID(id string) *HTMLAssert {
	ha.t.Helper()
	if !strings.Contains(ha.html, fmt.Sprintf(`id="%s"`, id)) {
		ha.t.Errorf("No element with id %q", id)
	}
	return ha
}

// Lacks asserts that the HTML does not contain fragment.
func (ha *HTMLAssert) Lacks(fragment string) *HTMLAssert {
	ha.t.Helper()
	if strings.Contains(ha.html, fragment) {
		ha.t.Errorf("Unexpected %q in HTML", fragment)
	}
	return ha
}

// Disabled asserts that the element with the given id is rendered disabled.
func (ha *HTMLAssert) Disabled(id string) *HTMLAssert {
	ha.t.Helper()
	if !elementHasAttr(ha.html, id, "disabled") {
		ha.t.Errorf("Element %q should be disabled", id)
	}
	return ha
}

// Enabled asserts that the element with the given id is rendered without
// the disabled attribute.
func (ha *HTMLAssert) Enabled(id string) *HTMLAssert {
	ha.t.Helper()
	if !strings.Contains(ha.html, fmt.Sprintf(`id="%s"`, id)) {
		ha.t.Errorf("No element with id %q", id)
		return ha
	}
	if elementHasAttr(ha.html, id, "disabled") {
		ha.t.Errorf("Element %q should be enabled", id)
	}
	return ha
}

// elementHasAttr reports whether the opening tag carrying id="id" also has
// the bare attribute attr.
func elementHasAttr(html, id, attr string) bool {
	idx := strings.Index(html, fmt.Sprintf(`id="%s"`, id))
	if idx == -1 {
		return false
	}
	start := strings.LastIndexByte(html[:idx], '<')
	end := strings.IndexByte(html[idx:], '>')
	if start == -1 || end == -1 {
		return false
	}
	tag := html[start : idx+end]
	for _, field := range strings.Fields(tag) {
		if field == attr || strings.HasPrefix(field, attr+"=") {
			return true
		}
	}
	return false
}
