package browser

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxBytes  int
		wantTitle string
		wantDesc  string
		wantHTML  []string // substrings that should be present
		wantNot   []string // substrings that should NOT be present
		truncated bool
	}{
		{
			name: "basic HTML with script and style removal",
			input: `<html>
				<head>
					<title>Acme Store</title>
					<meta name="description" content="Shop acme widgets">
				</head>
				<body>
					<script>alert('evil');</script>
					<style>body { color: red; }</style>
					<h1 id="main-title">Hello World</h1>
					<p class="intro">This is a test.</p>
				</body>
			</html>`,
			maxBytes:  10000,
			wantTitle: "Acme Store",
			wantDesc:  "Shop acme widgets",
			wantHTML:  []string{"<h1 id=\"main-title\">", "Hello World", "<p class=\"intro\">", "This is a test"},
			wantNot:   []string{"<script>", "alert", "<style>", "color: red", "<title>", "<meta"},
			truncated: false,
		},
		{
			name: "preserve semantic structure",
			input: `<html><body>
				<header><nav><a href="/home">Home</a></nav></header>
				<main>
					<section id="content">
						<article><h2>Article Title</h2></article>
					</section>
				</main>
				<footer><p>Footer</p></footer>
			</body></html>`,
			maxBytes:  10000,
			wantHTML:  []string{"<header>", "<nav>", "<main>", "<section id=\"content\">", "<article>", "<footer>"},
			truncated: false,
		},
		{
			name: "preserve targeting attributes",
			input: `<html><body>
				<form action="/submit" method="post">
					<label for="username">Name</label>
					<input type="text" name="username" id="username" placeholder="Enter name" data-test="username-field">
					<button type="submit" class="btn-primary" aria-label="Submit form">Submit</button>
				</form>
			</body></html>`,
			maxBytes: 10000,
			wantHTML: []string{
				`<form action="/submit" method="post">`,
				`<label for="username">`,
				`type="text"`,
				`name="username"`,
				`id="username"`,
				`placeholder="Enter name"`,
				`data-test="username-field"`,
				`class="btn-primary"`,
				`aria-label="Submit form"`,
			},
			truncated: false,
		},
		{
			name: "remove unwanted elements",
			input: `<html><body>
				<div>Content</div>
				<script src="app.js"></script>
				<noscript>No JS</noscript>
				<iframe src="ad.html"></iframe>
				<svg><circle/></svg>
				<template><div>Template row</div></template>
			</body></html>`,
			maxBytes:  10000,
			wantHTML:  []string{"<div>", "Content"},
			wantNot:   []string{"<script>", "<noscript>", "<iframe>", "<svg>", "No JS", "Template row"},
			truncated: false,
		},
		{
			name: "remove hidden elements",
			input: `<html><body>
				<div style="display: none">Secret panel</div>
				<span hidden>Stashed</span>
				<div aria-hidden="true">Decorative icon</div>
				<input type="hidden" name="csrf" value="tok123">
				<div style="visibility: hidden">Invisible</div>
				<p>Visible content</p>
			</body></html>`,
			maxBytes:  10000,
			wantHTML:  []string{"Visible content"},
			wantNot:   []string{"Secret panel", "Stashed", "Decorative icon", "csrf", "tok123", "Invisible"},
			truncated: false,
		},
		{
			name: "truncate long pages",
			input: `<html><body>
				<p>First paragraph with some content.</p>
				<p>Second paragraph with more content.</p>
				<p>Third paragraph that should be dropped.</p>
			</body></html>`,
			maxBytes:  100,
			wantHTML:  []string{"First paragraph", "..."},
			wantNot:   []string{"Third paragraph"},
			truncated: true,
		},
		{
			name: "preserve links with href",
			input: `<html><body>
				<a href="https://example.com" target="_blank" class="external">Link Text</a>
			</body></html>`,
			maxBytes:  10000,
			wantHTML:  []string{`href="https://example.com"`, `target="_blank"`, `class="external"`, "Link Text"},
			truncated: false,
		},
		{
			name: "preserve select options",
			input: `<html><body>
				<select name="plan">
					<option value="free">Free</option>
					<option value="pro" selected>Pro</option>
				</select>
			</body></html>`,
			maxBytes:  10000,
			wantHTML:  []string{`<select name="plan">`, `<option value="free">`, `value="pro"`},
			truncated: false,
		},
		{
			name: "handle void elements",
			input: `<html><body>
				<img src="test.jpg" alt="Test image">
				<br>
				<input type="text" name="field">
				<hr>
			</body></html>`,
			maxBytes:  10000,
			wantHTML:  []string{`<img src="test.jpg" alt="Test image">`, "<br>", `<input type="text" name="field">`, "<hr>"},
			wantNot:   []string{"</img>", "</br>", "</input>", "</hr>"},
			truncated: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CleanHTML(tt.input, tt.maxBytes)
			if err != nil {
				t.Fatalf("CleanHTML() error = %v", err)
			}

			if result.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", result.Title, tt.wantTitle)
			}

			if result.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", result.Description, tt.wantDesc)
			}

			if result.Truncated != tt.truncated {
				t.Errorf("Truncated = %v, want %v", result.Truncated, tt.truncated)
			}

			for _, want := range tt.wantHTML {
				if !strings.Contains(result.HTML, want) {
					t.Errorf("HTML missing expected substring: %q\nGot: %s", want, result.HTML)
				}
			}

			for _, notWant := range tt.wantNot {
				if strings.Contains(result.HTML, notWant) {
					t.Errorf("HTML contains unwanted substring: %q\nGot: %s", notWant, result.HTML)
				}
			}
		})
	}
}

func TestCleanHTMLDefaultBudget(t *testing.T) {
	result, err := CleanHTML("<html><body><p>Short page</p></body></html>", 0)
	if err != nil {
		t.Fatalf("CleanHTML() error = %v", err)
	}
	if result.Truncated {
		t.Error("Truncated = true for a page far under the default budget")
	}
	if !strings.Contains(result.HTML, "Short page") {
		t.Errorf("HTML missing content: %s", result.HTML)
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{"under limit", "abc", 10, "abc"},
		{"exact limit", "abc", 3, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"mid rune", "héllo", 2, "h"},
		{"after rune", "héllo", 3, "hé"},
		{"cjk mid rune", "日本語", 4, "日"},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateUTF8(tt.s, tt.max); got != tt.want {
				t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
		})
	}
}

func TestIsSkippedElement(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"head", true},
		{"script", true},
		{"style", true},
		{"noscript", true},
		{"iframe", true},
		{"svg", true},
		{"template", true},
		{"div", false},
		{"p", false},
		{"span", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := isSkippedElement(tt.tag); got != tt.want {
				t.Errorf("isSkippedElement(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestIsHiddenElement(t *testing.T) {
	tests := []struct {
		name string
		node *html.Node
		want bool
	}{
		{
			name: "hidden attribute",
			node: &html.Node{Type: html.ElementNode, Data: "span", Attr: []html.Attribute{{Key: "hidden"}}},
			want: true,
		},
		{
			name: "aria-hidden true",
			node: &html.Node{Type: html.ElementNode, Data: "div", Attr: []html.Attribute{{Key: "aria-hidden", Val: "true"}}},
			want: true,
		},
		{
			name: "aria-hidden false",
			node: &html.Node{Type: html.ElementNode, Data: "div", Attr: []html.Attribute{{Key: "aria-hidden", Val: "false"}}},
			want: false,
		},
		{
			name: "inline display none",
			node: &html.Node{Type: html.ElementNode, Data: "div", Attr: []html.Attribute{{Key: "style", Val: "color: blue; display: none"}}},
			want: true,
		},
		{
			name: "inline visibility hidden",
			node: &html.Node{Type: html.ElementNode, Data: "div", Attr: []html.Attribute{{Key: "style", Val: "visibility:hidden"}}},
			want: true,
		},
		{
			name: "hidden input",
			node: &html.Node{Type: html.ElementNode, Data: "input", Attr: []html.Attribute{{Key: "type", Val: "hidden"}}},
			want: true,
		},
		{
			name: "text input",
			node: &html.Node{Type: html.ElementNode, Data: "input", Attr: []html.Attribute{{Key: "type", Val: "text"}}},
			want: false,
		},
		{
			name: "plain div",
			node: &html.Node{Type: html.ElementNode, Data: "div", Attr: []html.Attribute{{Key: "class", Val: "card"}}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isHiddenElement(tt.node); got != tt.want {
				t.Errorf("isHiddenElement() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeepAttribute(t *testing.T) {
	tests := []struct {
		tag  string
		attr string
		want bool
	}{
		{"div", "id", true},
		{"div", "class", true},
		{"div", "role", true},
		{"div", "title", true},
		{"div", "aria-label", true},
		{"div", "data-test", true},
		{"div", "style", false},
		{"div", "onclick", false},
		{"a", "href", true},
		{"a", "target", true},
		{"img", "src", true},
		{"img", "alt", true},
		{"input", "name", true},
		{"input", "type", true},
		{"input", "placeholder", true},
		{"option", "value", true},
		{"option", "selected", true},
		{"label", "for", true},
		{"form", "action", true},
		{"form", "method", true},
		{"span", "href", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag+"_"+tt.attr, func(t *testing.T) {
			if got := keepAttribute(tt.tag, tt.attr); got != tt.want {
				t.Errorf("keepAttribute(%q, %q) = %v, want %v", tt.tag, tt.attr, got, tt.want)
			}
		})
	}
}
