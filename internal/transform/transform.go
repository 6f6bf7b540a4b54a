// Package transform rewrites notification body text using keyword rules.
//
// Rules apply in order. Replacement text enters the output as literal
// styled spans, never as markup, so a rule can not inject styling or
// layout into a render surface that interprets markup.
package transform

import (
	"log/slog"
	"regexp"
	"strings"

	"marquee/internal/config"
)

// maxRewritePasses caps recursive re-scanning so a self-matching rule can
// not loop forever. When the cap is hit the best-effort partial result is
// returned.
const maxRewritePasses = 8

// Style carries font/color overrides for a span. The zero value means
// "inherit".
type Style struct {
	Bold      bool
	Italic    bool
	Underline bool
	Color     string
	SizePt    float64
}

// IsZero reports whether the style carries no overrides.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Span is a run of literal text with a single style.
type Span struct {
	Text  string
	Style Style

	// locked spans are replacement output from a non-rescan rule and are
	// skipped by later matching.
	locked bool
}

// RichText is display-ready text: an ordered sequence of styled spans.
type RichText []Span

// Plain flattens the rich text to its unstyled string. This is the string
// used for scroll width measurement.
func (r RichText) Plain() string {
	var b strings.Builder
	for _, s := range r {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Rule is a compiled keyword replacement rule.
type Rule struct {
	Pattern     string
	Replacement string
	Style       Style
	Rescan      bool

	re *regexp.Regexp // nil for literal rules
}

// CompileRules compiles config rules, skipping rules with invalid regular
// expressions. A bad rule never blocks banner creation.
func CompileRules(raw []config.KeywordRule, logger *slog.Logger) []Rule {
	if logger == nil {
		logger = slog.Default()
	}

	rules := make([]Rule, 0, len(raw))
	for _, kr := range raw {
		if kr.Pattern == "" {
			continue
		}
		rule := Rule{
			Pattern:     kr.Pattern,
			Replacement: kr.Replacement,
			Rescan:      kr.Rescan,
			Style: Style{
				Bold:      kr.Style.Bold,
				Italic:    kr.Style.Italic,
				Underline: kr.Style.Underline,
				Color:     kr.Style.Color,
				SizePt:    kr.Style.SizePt,
			},
		}
		if kr.Regex {
			re, err := regexp.Compile(kr.Pattern)
			if err != nil {
				logger.Warn("skipping rule with invalid regex", "pattern", kr.Pattern, "error", err)
				continue
			}
			rule.re = re
		}
		rules = append(rules, rule)
	}
	return rules
}

// Transformer applies an ordered rule set to notification text.
type Transformer struct {
	rules  []Rule
	logger *slog.Logger
}

// New creates a Transformer. A nil or empty rule set passes text through.
func New(rules []Rule, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{rules: rules, logger: logger}
}

// Apply rewrites body text into display-ready rich text.
func (t *Transformer) Apply(body string) RichText {
	spans := RichText{{Text: body}}
	if len(t.rules) == 0 {
		return spans
	}

	for pass := 0; pass < maxRewritePasses; pass++ {
		changed := false
		for i := range t.rules {
			spans = applyRule(&t.rules[i], spans, &changed)
		}
		if !changed {
			return spans
		}
	}

	t.logger.Warn("rewrite pass cap reached, returning partial result", "passes", maxRewritePasses)
	return spans
}

// applyRule applies one rule across all unlocked spans.
func applyRule(rule *Rule, spans RichText, changed *bool) RichText {
	out := make(RichText, 0, len(spans))
	for _, span := range spans {
		if span.locked || span.Text == "" {
			out = append(out, span)
			continue
		}
		out = append(out, rule.applyToSpan(span, changed)...)
	}
	return out
}

// applyToSpan splits one span around the rule's matches.
func (r *Rule) applyToSpan(span Span, changed *bool) RichText {
	if r.re != nil {
		return r.applyRegex(span, changed)
	}
	return r.applyLiteral(span, changed)
}

func (r *Rule) applyRegex(span Span, changed *bool) RichText {
	matches := r.re.FindAllStringSubmatchIndex(span.Text, -1)
	if len(matches) == 0 {
		return RichText{span}
	}

	var out RichText
	last := 0
	for _, m := range matches {
		if m[0] > last {
			out = append(out, Span{Text: span.Text[last:m[0]], Style: span.Style, locked: span.locked})
		}
		// Expand $1-style references against the match.
		repl := string(r.re.ExpandString(nil, r.Replacement, span.Text, m))
		out = append(out, r.replacementSpan(repl, span))
		last = m[1]
		*changed = true
	}
	if last < len(span.Text) {
		out = append(out, Span{Text: span.Text[last:], Style: span.Style, locked: span.locked})
	}
	return out
}

func (r *Rule) applyLiteral(span Span, changed *bool) RichText {
	if !strings.Contains(span.Text, r.Pattern) {
		return RichText{span}
	}

	var out RichText
	rest := span.Text
	for {
		idx := strings.Index(rest, r.Pattern)
		if idx < 0 {
			break
		}
		if idx > 0 {
			out = append(out, Span{Text: rest[:idx], Style: span.Style, locked: span.locked})
		}
		out = append(out, r.replacementSpan(r.Replacement, span))
		rest = rest[idx+len(r.Pattern):]
		*changed = true
	}
	if rest != "" {
		out = append(out, Span{Text: rest, Style: span.Style, locked: span.locked})
	}
	return out
}

// replacementSpan builds the span for replaced text. The rule's style wins
// when set, otherwise the surrounding style is inherited. The span is
// locked against further matching unless the rule asks for a rescan.
func (r *Rule) replacementSpan(text string, src Span) Span {
	style := r.Style
	if style.IsZero() {
		style = src.Style
	}
	return Span{Text: text, Style: style, locked: !r.Rescan}
}
