// File: internal/discovery/discovery.go
// Package discovery scans a live page for elements worth interacting with.
// It is a read-only probe: a fixed, ordered set of role selectors is queried
// in-page, visible matches are described, and duplicates that occupy the same
// screen rectangle are collapsed to one candidate.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// roleSelectors is the fixed probe order. Two selectors may match the same
// element (a focusable button matches both the button rule and the tabindex
// rule); deduplication by bounding box resolves that, first selector winning.
var roleSelectors = []string{
	`a[href]`,
	`button`,
	`input[type="submit"]`,
	`input[type="button"]`,
	`[role="button"]`,
	`select:not([disabled])`,
	`input[type="checkbox"]`,
	`input[type="radio"]`,
	`[onclick]`,
	`[tabindex]:not([tabindex="-1"])`,
}

const maxTextRunes = 80

// BoundingBox is the on-screen rectangle of a candidate, in CSS pixels. Exact
// coordinate equality is the deduplication key.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the geometric center of the box, the natural click target.
func (b BoundingBox) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// InteractiveElement is one discovered candidate. Instances are created fresh
// on every scan and never mutated; there is no identity across scans.
type InteractiveElement struct {
	Selector string      `json:"selector"`
	Tag      string      `json:"tag"`
	Text     string      `json:"text,omitempty"`
	Box      BoundingBox `json:"box"`
}

// Evaluator executes a JavaScript expression in the page and unmarshals its
// result. Satisfied by the browser session; mocked in tests.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out any) error
}

// Discover probes every role selector against the live page and returns the
// deduplicated candidate list in discovery order. A failure probing one
// selector contributes zero candidates and does not abort the rest.
func Discover(ctx context.Context, ev Evaluator, logger *zap.Logger) []InteractiveElement {
	elements := make([]InteractiveElement, 0, 32)
	seen := make(map[string]bool)

	for _, sel := range roleSelectors {
		var matches []InteractiveElement
		if err := ev.Evaluate(ctx, probeScript(sel), &matches); err != nil {
			logger.Debug("Selector probe failed; skipping.", zap.String("selector", sel), zap.Error(err))
			continue
		}
		for _, el := range matches {
			if el.Box.Width <= 0 || el.Box.Height <= 0 {
				continue
			}
			key := boxKey(el.Box)
			if seen[key] {
				continue
			}
			seen[key] = true
			el.Text = truncateText(el.Text)
			elements = append(elements, el)
		}
	}
	return elements
}

// boxKey builds the dedupe key from exact box coordinates.
func boxKey(b BoundingBox) string {
	return fmt.Sprintf("%.2f,%.2f,%.2f,%.2f", b.X, b.Y, b.Width, b.Height)
}

func truncateText(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxTextRunes {
		return s
	}
	return string(runes[:maxTextRunes])
}

// probeScript builds the in-page expression for one role selector. It filters
// to currently visible elements and computes a stable CSS path per match so
// later interactions can target the element again.
func probeScript(selector string) string {
	return fmt.Sprintf(probeTemplate, jsString(selector))
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

const probeTemplate = `(() => {
	const sel = %s;
	const cssPath = (el) => {
		if (el.id) { return el.tagName.toLowerCase() + '#' + CSS.escape(el.id); }
		const parts = [];
		let node = el;
		while (node && node.nodeType === Node.ELEMENT_NODE && parts.length < 6) {
			let part = node.tagName.toLowerCase();
			if (node.id) { parts.unshift(part + '#' + CSS.escape(node.id)); break; }
			const parent = node.parentElement;
			if (parent) {
				const same = Array.from(parent.children).filter(c => c.tagName === node.tagName);
				if (same.length > 1) { part += ':nth-of-type(' + (same.indexOf(node) + 1) + ')'; }
			}
			parts.unshift(part);
			node = parent;
		}
		return parts.join(' > ');
	};
	const out = [];
	for (const el of document.querySelectorAll(sel)) {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') { continue; }
		const rect = el.getBoundingClientRect();
		if (!rect || rect.width <= 0 || rect.height <= 0) { continue; }
		out.push({
			selector: cssPath(el),
			tag: el.tagName.toLowerCase(),
			text: (el.textContent || '').trim().slice(0, 120),
			box: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
		});
	}
	return out;
})()`
