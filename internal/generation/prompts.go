package generation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/contentflow/internal/domain"
)

const answerFormat = `
Answer with a single line starting with "Title:" followed by the title, then a blank line, then the body. Do not add any other commentary.`

// DefaultPrompts holds the built-in templates keyed by content type.
var DefaultPrompts = map[domain.ContentType]string{
	domain.ContentSocialMediaPost: `Write a social media post about {{ topic }}.
Keep the body under 280 characters{% if tone != "" %} and use a {{ tone }} tone{% endif %}.
{% if keywords.size > 0 %}Work in these hashtags: {% for k in keywords %}#{{ k | remove: " " }}{% unless forloop.last %} {% endunless %}{% endfor %}.{% endif %}`,

	domain.ContentBlogArticle: `Write a blog article about {{ topic }}{% if tone != "" %} in a {{ tone }} tone{% endif %}.
Use short sections with headings and finish with a conclusion.
{% if keywords.size > 0 %}Cover these keywords: {{ keywords | join: ", " }}.{% endif %}`,

	domain.ContentEmailCampaign: `Write a marketing email about {{ topic }}{% if tone != "" %} in a {{ tone }} tone{% endif %}.
The title is the subject line. The body is plain text with one clear call to action.
{% if keywords.size > 0 %}Mention: {{ keywords | join: ", " }}.{% endif %}`,

	domain.ContentProductDescription: `Write a product description for {{ topic }}{% if tone != "" %} in a {{ tone }} tone{% endif %}.
Lead with the main benefit, then list key features.
{% if keywords.size > 0 %}Include: {{ keywords | join: ", " }}.{% endif %}`,
}

// PromptRenderer turns a generation request into a model prompt.
type PromptRenderer struct {
	engine    *liquid.Engine
	templates map[domain.ContentType]string

	mu    sync.Mutex
	cache map[domain.ContentType]*liquid.Template
}

// NewPromptRenderer parses nothing up front; overrides replace the default
// template for their content type.
func NewPromptRenderer(overrides map[domain.ContentType]string) *PromptRenderer {
	templates := make(map[domain.ContentType]string, len(DefaultPrompts))
	for t, src := range DefaultPrompts {
		templates[t] = src
	}
	for t, src := range overrides {
		if strings.TrimSpace(src) != "" {
			templates[t] = src
		}
	}
	return &PromptRenderer{
		engine:    liquid.NewEngine(),
		templates: templates,
		cache:     make(map[domain.ContentType]*liquid.Template),
	}
}

// Validate parses every template and reports the first syntax error.
func (r *PromptRenderer) Validate() error {
	for t := range r.templates {
		if _, err := r.template(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *PromptRenderer) template(t domain.ContentType) (*liquid.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[t]; ok {
		return tpl, nil
	}
	src, ok := r.templates[t]
	if !ok {
		return nil, fmt.Errorf("%w: no prompt for content type %q", domain.ErrValidation, t)
	}
	tpl, err := r.engine.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s prompt: %w", t, err)
	}
	r.cache[t] = tpl
	return tpl, nil
}

// Render produces the prompt for one request.
func (r *PromptRenderer) Render(t domain.ContentType, topic, tone string, keywords []string) (string, error) {
	tpl, err := r.template(t)
	if err != nil {
		return "", err
	}
	if keywords == nil {
		keywords = []string{}
	}
	out, err := tpl.RenderString(liquid.Bindings{
		"topic":    topic,
		"tone":     tone,
		"keywords": keywords,
	})
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t, err)
	}
	return strings.TrimSpace(out) + "\n" + answerFormat, nil
}
