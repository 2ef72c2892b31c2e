package browser

import (
	"context"
	"fmt"

	"scrapinator/pkg/task"
)

// discoverScript runs in the page and collects the visible interactive
// elements, synthesizing a stable CSS selector for each. It prefers ids
// and name attributes and falls back to a short nth-of-type path.
const discoverScript = `() => {
	const LIMIT = 10;
	const ATTRS = ['id', 'name', 'href', 'type', 'placeholder', 'aria-label', 'value', 'role'];
	const seen = new Set();
	const results = [];

	const visible = (el) => {
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 || rect.height === 0) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden';
	};

	const cssPath = (el) => {
		const name = el.getAttribute('name');
		if (name && name.indexOf('"') === -1) {
			return el.tagName.toLowerCase() + '[name="' + name + '"]';
		}
		const parts = [];
		let node = el;
		while (node && node.nodeType === Node.ELEMENT_NODE && parts.length < 5) {
			if (node.id) {
				parts.unshift('#' + CSS.escape(node.id));
				break;
			}
			let part = node.tagName.toLowerCase();
			const parent = node.parentElement;
			if (parent) {
				const sameTag = Array.from(parent.children).filter((c) => c.tagName === node.tagName);
				if (sameTag.length > 1) {
					part += ':nth-of-type(' + (sameTag.indexOf(node) + 1) + ')';
				}
			}
			parts.unshift(part);
			node = parent;
		}
		return parts.join(' > ');
	};

	const attrsOf = (el) => {
		const out = {};
		for (const key of ATTRS) {
			const val = el.getAttribute(key);
			if (val) out[key] = val;
		}
		return out;
	};

	const push = (el, type) => {
		const selector = cssPath(el);
		if (!selector || seen.has(selector)) return false;
		seen.add(selector);
		const text = (el.innerText || el.textContent || '').trim().replace(/\s+/g, ' ').slice(0, 120);
		results.push({
			type: type,
			tag: el.tagName.toLowerCase(),
			selector: selector,
			text: text,
			visible: true,
			attributes: attrsOf(el),
		});
		return true;
	};

	const collect = (type, query) => {
		let count = 0;
		for (const el of document.querySelectorAll(query)) {
			if (count >= LIMIT) break;
			if (!visible(el)) continue;
			if (push(el, type)) count++;
		}
	};

	collect('button', 'button, [role="button"], input[type="submit"], input[type="button"]');
	collect('link', 'a[href]');
	collect('input', 'input:not([type="hidden"]):not([type="submit"]):not([type="button"]), textarea');
	collect('select', 'select');
	collect('form', 'form');
	return results;
}`

// DiscoverElements collects the interactive elements currently visible
// on the page. Selectors are synthesized in the page where the real DOM
// is available, so they resolve when a plan replays them.
func (s *Session) DiscoverElements(ctx context.Context) ([]task.PageElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.page.Evaluate(discoverScript)
	if err != nil {
		return nil, fmt.Errorf("element discovery failed: %w", err)
	}

	items, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("element discovery returned unexpected type %T", result)
	}

	elements := make([]task.PageElement, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		element := task.PageElement{
			Type:     stringField(fields, "type"),
			Tag:      stringField(fields, "tag"),
			Selector: stringField(fields, "selector"),
			Text:     stringField(fields, "text"),
			Visible:  boolField(fields, "visible"),
		}
		if element.Selector == "" {
			continue
		}
		if raw, ok := fields["attributes"].(map[string]interface{}); ok && len(raw) > 0 {
			element.Attributes = make(map[string]string, len(raw))
			for key, val := range raw {
				if str, ok := val.(string); ok {
					element.Attributes[key] = str
				}
			}
		}
		elements = append(elements, element)
	}

	s.touch()
	return elements, nil
}

func stringField(fields map[string]interface{}, key string) string {
	if val, ok := fields[key].(string); ok {
		return val
	}
	return ""
}

func boolField(fields map[string]interface{}, key string) bool {
	if val, ok := fields[key].(bool); ok {
		return val
	}
	return false
}
