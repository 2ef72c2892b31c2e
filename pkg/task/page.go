package task

import "time"

// PageAnalysis is the structured understanding of a web page produced by
// the explorer: what the page is, what it is for, and which elements a
// plan can interact with.
type PageAnalysis struct {
	// URL is the analyzed page URL.
	URL string `json:"url"`

	// Title is the page title.
	Title string `json:"title,omitempty"`

	// PageType classifies the page ("login", "search", "listing",
	// "article", "form", ...). Free-form, model-reported.
	PageType string `json:"page_type,omitempty"`

	// Summary describes the page's purpose in a sentence or two.
	Summary string `json:"summary,omitempty"`

	// Elements are the interactive elements discovered on the page.
	Elements []PageElement `json:"elements,omitempty"`

	// Insights are notable observations relevant to planning (pagination
	// present, login required, infinite scroll, ...).
	Insights []string `json:"insights,omitempty"`

	// Confidence is the analysis confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// AnalyzedAt is when the analysis was produced.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// FromCache is true when the analysis was served from the page cache
	// rather than a live browser visit.
	FromCache bool `json:"from_cache,omitempty"`
}

// Validate checks the analysis satisfies its structural invariants.
func (p *PageAnalysis) Validate() error {
	if p.URL == "" {
		return &ValidationError{
			Field:    "url",
			Expected: "non-empty string",
			Message:  "page analysis must have a URL",
		}
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return &ValidationError{
			Field:    "confidence",
			Expected: "value in [0, 1]",
			Message:  "page analysis confidence must be in [0, 1]",
		}
	}
	return nil
}

// Element returns the first element whose selector matches, or nil.
func (p *PageAnalysis) Element(selector string) *PageElement {
	for i := range p.Elements {
		if p.Elements[i].Selector == selector {
			return &p.Elements[i]
		}
	}
	return nil
}

// PageElement is a single interactive element discovered on a page.
type PageElement struct {
	// Attributes holds the element attributes relevant to selection and
	// interaction (id, name, href, placeholder, aria-label, type).
	Attributes map[string]string `json:"attributes,omitempty"`

	// Selector is a CSS selector that locates the element.
	Selector string `json:"selector"`

	// Tag is the HTML tag name.
	Tag string `json:"tag,omitempty"`

	// Type classifies the element ("button", "input", "link", "form",
	// "select", "clickable").
	Type string `json:"type,omitempty"`

	// Text is the element's visible text, truncated.
	Text string `json:"text,omitempty"`

	// Purpose is the model's reading of what the element is for.
	Purpose string `json:"purpose,omitempty"`

	// Visible is true when the element had a non-zero bounding box.
	Visible bool `json:"visible"`
}
