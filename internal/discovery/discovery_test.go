// File: internal/discovery/discovery_test.go
package discovery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEvaluator returns canned probe results keyed by the role selector
// embedded in the expression, and can fail specific selectors.
type fakeEvaluator struct {
	results map[string][]InteractiveElement
	fail    map[string]bool
	probed  []string
}

func (f *fakeEvaluator) Evaluate(_ context.Context, expression string, out any) error {
	for _, sel := range roleSelectors {
		if strings.Contains(expression, jsString(sel)) {
			f.probed = append(f.probed, sel)
			if f.fail[sel] {
				return errors.New("evaluation failed")
			}
			data, err := jsoniter.Marshal(f.results[sel])
			if err != nil {
				return err
			}
			return jsoniter.Unmarshal(data, out)
		}
	}
	return errors.New("unexpected expression")
}

func el(selector, tag, text string, x, y, w, h float64) InteractiveElement {
	return InteractiveElement{
		Selector: selector,
		Tag:      tag,
		Text:     text,
		Box:      BoundingBox{X: x, Y: y, Width: w, Height: h},
	}
}

func TestDiscoverDeduplicatesByBoundingBox(t *testing.T) {
	t.Parallel()

	// One button matches both the button rule and the tabindex rule at the
	// same screen rectangle; the first-seen selector must win.
	ev := &fakeEvaluator{
		results: map[string][]InteractiveElement{
			`button`:                           {el("button#go", "button", "Go", 10, 20, 80, 30)},
			`[tabindex]:not([tabindex="-1"])`:  {el(`[tabindex="0"]`, "button", "Go", 10, 20, 80, 30)},
		},
	}

	got := Discover(context.Background(), ev, zap.NewNop())
	require.Len(t, got, 1)
	assert.Equal(t, "button#go", got[0].Selector)
	assert.Equal(t, "button", got[0].Tag)
}

func TestDiscoverSwallowsPerSelectorFailure(t *testing.T) {
	t.Parallel()

	ev := &fakeEvaluator{
		results: map[string][]InteractiveElement{
			`a[href]`: {el("a#home", "a", "Home", 0, 0, 50, 20)},
			`button`:  {el("button#go", "button", "Go", 10, 100, 80, 30)},
		},
		fail: map[string]bool{`a[href]`: true},
	}

	got := Discover(context.Background(), ev, zap.NewNop())
	require.Len(t, got, 1, "failed selector contributes zero candidates")
	assert.Equal(t, "button#go", got[0].Selector)
	// The failure must not abort the remaining probes.
	assert.Len(t, ev.probed, len(roleSelectors))
}

func TestDiscoverDropsUnresolvableBoxes(t *testing.T) {
	t.Parallel()

	ev := &fakeEvaluator{
		results: map[string][]InteractiveElement{
			`button`: {
				el("button#visible", "button", "OK", 5, 5, 40, 20),
				el("button#zero", "button", "Hidden", 0, 0, 0, 0),
			},
		},
	}

	got := Discover(context.Background(), ev, zap.NewNop())
	require.Len(t, got, 1)
	assert.Equal(t, "button#visible", got[0].Selector)
}

func TestDiscoverPreservesDiscoveryOrder(t *testing.T) {
	t.Parallel()

	ev := &fakeEvaluator{
		results: map[string][]InteractiveElement{
			`a[href]`: {el("a#first", "a", "First", 0, 0, 50, 20), el("a#second", "a", "Second", 0, 30, 50, 20)},
			`button`:  {el("button#third", "button", "Third", 0, 60, 50, 20)},
		},
	}

	got := Discover(context.Background(), ev, zap.NewNop())
	want := []InteractiveElement{
		el("a#first", "a", "First", 0, 0, 50, 20),
		el("a#second", "a", "Second", 0, 30, 50, 20),
		el("button#third", "button", "Third", 0, 60, 50, 20),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("discovered elements mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverTruncatesText(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 200)
	ev := &fakeEvaluator{
		results: map[string][]InteractiveElement{
			`button`: {el("button#long", "button", long, 0, 0, 10, 10)},
		},
	}

	got := Discover(context.Background(), ev, zap.NewNop())
	require.Len(t, got, 1)
	assert.Len(t, []rune(got[0].Text), maxTextRunes)
}

func TestBoundingBoxCenter(t *testing.T) {
	t.Parallel()

	x, y := (BoundingBox{X: 10, Y: 20, Width: 100, Height: 40}).Center()
	assert.Equal(t, 60.0, x)
	assert.Equal(t, 40.0, y)
}
