package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marquee/internal/config"
)

func TestCompileRules_SkipsInvalidRegex(t *testing.T) {
	raw := []config.KeywordRule{
		{Pattern: "ok", Replacement: "fine"},
		{Pattern: "[broken", Replacement: "x", Regex: true},
		{Pattern: `\d+`, Replacement: "N", Regex: true},
		{Pattern: ""},
	}

	rules := CompileRules(raw, nil)
	require.Len(t, rules, 2)
	assert.Equal(t, "ok", rules[0].Pattern)
	assert.Equal(t, `\d+`, rules[1].Pattern)
}

func TestApply_LiteralReplacement(t *testing.T) {
	rules := CompileRules([]config.KeywordRule{
		{Pattern: "urgent", Replacement: "URGENT", Style: config.RuleStyle{Bold: true, Color: "#ff0000"}},
	}, nil)
	tr := New(rules, nil)

	out := tr.Apply("this is urgent, very urgent indeed")

	assert.Equal(t, "this is URGENT, very URGENT indeed", out.Plain())
	require.Len(t, out, 5)
	assert.Equal(t, "URGENT", out[1].Text)
	assert.True(t, out[1].Style.Bold)
	assert.Equal(t, "#ff0000", out[1].Style.Color)
	assert.False(t, out[0].Style.Bold) // surrounding text is untouched
}

func TestApply_RegexWithGroups(t *testing.T) {
	rules := CompileRules([]config.KeywordRule{
		{Pattern: `room (\d+)`, Replacement: "Room $1", Regex: true},
	}, nil)
	tr := New(rules, nil)

	out := tr.Apply("call from room 213")
	assert.Equal(t, "call from Room 213", out.Plain())
}

func TestApply_RulesApplyInOrder(t *testing.T) {
	rules := CompileRules([]config.KeywordRule{
		{Pattern: "cat", Replacement: "dog"},
		{Pattern: "dog", Replacement: "ferret"},
	}, nil)
	tr := New(rules, nil)

	// "cat" becomes "dog", but that output is locked so the second rule
	// only rewrites the original "dog".
	out := tr.Apply("cat and dog")
	assert.Equal(t, "dog and ferret", out.Plain())
}

func TestApply_RescanFeedsLaterRules(t *testing.T) {
	rules := CompileRules([]config.KeywordRule{
		{Pattern: "cat", Replacement: "dog", Rescan: true},
		{Pattern: "dog", Replacement: "ferret"},
	}, nil)
	tr := New(rules, nil)

	out := tr.Apply("cat and dog")
	assert.Equal(t, "ferret and ferret", out.Plain())
}

func TestApply_SelfMatchingRescanTerminates(t *testing.T) {
	rules := CompileRules([]config.KeywordRule{
		{Pattern: "a", Replacement: "aa", Rescan: true},
	}, nil)
	tr := New(rules, nil)

	// Growth stops at the pass cap instead of looping forever.
	out := tr.Apply("a")
	assert.NotEmpty(t, out.Plain())
	assert.LessOrEqual(t, len(out.Plain()), 1<<maxRewritePasses)
}

func TestApply_ReplacementIsLiteralText(t *testing.T) {
	rules := CompileRules([]config.KeywordRule{
		{Pattern: "x", Replacement: "<b>&amp;</b>"},
	}, nil)
	tr := New(rules, nil)

	// Markup in a replacement stays literal text. Styling travels on the
	// span, never inside the string.
	out := tr.Apply("x")
	assert.Equal(t, "<b>&amp;</b>", out.Plain())
	require.Len(t, out, 1)
	assert.True(t, out[0].Style.IsZero())
}

func TestApply_EmptyRuleSetPassesThrough(t *testing.T) {
	tr := New(nil, nil)

	out := tr.Apply("hello world")
	assert.Equal(t, "hello world", out.Plain())
	require.Len(t, out, 1)
	assert.True(t, out[0].Style.IsZero())
}

func TestApply_DeleteMatches(t *testing.T) {
	rules := CompileRules([]config.KeywordRule{
		{Pattern: `\s*\[spam\]\s*`, Replacement: " ", Regex: true},
	}, nil)
	tr := New(rules, nil)

	out := tr.Apply("hello [spam] world")
	assert.Equal(t, "hello world", out.Plain())
}

func TestApply_StyleInheritance(t *testing.T) {
	rules := CompileRules([]config.KeywordRule{
		{Pattern: "alert level 3", Replacement: "ALERT LEVEL THREE", Style: config.RuleStyle{Bold: true}, Rescan: true},
		{Pattern: "THREE", Replacement: "3"},
	}, nil)
	tr := New(rules, nil)

	out := tr.Apply("alert level 3")
	assert.Equal(t, "ALERT LEVEL 3", out.Plain())
	// The nested replacement has no style of its own and inherits bold.
	for _, span := range out {
		assert.True(t, span.Style.Bold, "span %q should inherit bold", span.Text)
	}
}
