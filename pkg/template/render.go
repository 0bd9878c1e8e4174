package template

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Default body length bounds for subject-less channels.
const (
	DefaultSMSMaxLength  = 160
	DefaultPushMaxLength = 240
)

// placeholderRe matches {{name}} placeholders, with optional inner spaces.
var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// placeholders returns the variable names referenced by a template source.
func placeholders(src string) []string {
	matches := placeholderRe.FindAllStringSubmatch(src, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Rendered is the output of rendering a template against an event context.
type Rendered struct {
	Subject  string
	Body     string
	HTMLBody string
}

// Renderer substitutes context variables into templates. It never fails: an
// unresolved or undeclared placeholder renders as an empty string and is
// logged, so a single broken template cannot abort a dispatch batch.
type Renderer struct {
	logger  *slog.Logger
	maxLens map[Channel]int
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRendererLogger sets the logger used for substitution warnings.
func WithRendererLogger(logger *slog.Logger) RendererOption {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxLength overrides the body length bound for a channel. Zero or
// negative lengths are ignored.
func WithMaxLength(ch Channel, n int) RendererOption {
	return func(r *Renderer) {
		if n > 0 {
			r.maxLens[ch] = n
		}
	}
}

// NewRenderer creates a renderer with default channel length bounds.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		logger: slog.Default(),
		maxLens: map[Channel]int{
			ChannelSMS:  DefaultSMSMaxLength,
			ChannelPush: DefaultPushMaxLength,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render fills the template with vars. Substitution is restricted to the
// template's declared variables; anything else renders empty. Subject-less
// channels get an empty subject and a length-bounded body, channels without
// HTML support get an empty HTML body.
func (r *Renderer) Render(ctx context.Context, tmpl Template, vars map[string]string) Rendered {
	out := Rendered{
		Subject: r.substitute(ctx, tmpl, tmpl.SubjectTemplate, vars),
		Body:    r.substitute(ctx, tmpl, tmpl.BodyTemplate, vars),
	}

	if tmpl.Channel.SupportsHTML() && tmpl.HTMLTemplate != "" {
		out.HTMLBody = r.substitute(ctx, tmpl, tmpl.HTMLTemplate, vars)
	}

	if tmpl.Channel.Subjectless() {
		out.Subject = ""
		if max, ok := r.maxLens[tmpl.Channel]; ok {
			out.Body = truncate(out.Body, max)
		}
	}

	return out
}

// substitute replaces placeholders with their context values.
func (r *Renderer) substitute(ctx context.Context, tmpl Template, src string, vars map[string]string) string {
	if src == "" {
		return ""
	}

	return placeholderRe.ReplaceAllStringFunc(src, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]

		if !tmpl.Declares(name) {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "template references undeclared variable",
				slog.String("template_id", tmpl.ID),
				slog.String("variable", name))
			return ""
		}

		v, ok := vars[name]
		if !ok {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "template variable missing from context",
				slog.String("template_id", tmpl.ID),
				slog.String("variable", name))
			return ""
		}
		return v
	})
}

// truncate bounds s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(strings.TrimSpace(s))
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
