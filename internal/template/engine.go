// Package template checks and renders {{ }} merge fields in email templates.
package template

import (
	"fmt"
	"sort"
	"strings"
	textTemplate "text/template"
	"text/template/parse"
)

// Engine renders templates with merge data
type Engine struct{}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{}
}

// Render renders every part with data. Missing keys render as empty strings.
func (e *Engine) Render(f Fields, data map[string]string) (*RenderResult, error) {
	if data == nil {
		data = map[string]string{}
	}

	subject, err := e.renderText("subject", f.Subject, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}

	preheader, err := e.renderText("preheader", f.Preheader, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render preheader: %w", err)
	}

	body, err := e.renderText("body", f.Body, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	return &RenderResult{Subject: subject, Preheader: preheader, Body: body}, nil
}

// Validate checks the merge field syntax of every part
func (e *Engine) Validate(f Fields) error {
	parts := []struct{ name, text string }{
		{"subject", f.Subject},
		{"preheader", f.Preheader},
		{"body", f.Body},
	}
	for _, p := range parts {
		if p.text == "" {
			continue
		}
		if _, err := e.parse(p.name, p.text); err != nil {
			return fmt.Errorf("invalid %s template: %w", p.name, err)
		}
	}
	return nil
}

// Variables returns the sorted, de-duplicated merge field names referenced
// as {{.Name}} across all parts. Invalid parts are skipped.
func (e *Engine) Variables(f Fields) []string {
	seen := make(map[string]struct{})
	for _, text := range []string{f.Subject, f.Preheader, f.Body} {
		t, err := e.parse("vars", text)
		if err != nil || t.Tree == nil {
			continue
		}
		collectFields(t.Tree.Root, seen)
	}

	vars := make([]string, 0, len(seen))
	for name := range seen {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return vars
}

func (e *Engine) parse(name, text string) (*textTemplate.Template, error) {
	return textTemplate.New(name).Option("missingkey=zero").Parse(text)
}

func (e *Engine) renderText(name, tmplStr string, data map[string]string) (string, error) {
	if tmplStr == "" {
		return "", nil
	}
	t, err := e.parse(name, tmplStr)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func collectFields(node parse.Node, seen map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collectFields(child, seen)
		}
	case *parse.ActionNode:
		collectFields(n.Pipe, seen)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			for _, arg := range cmd.Args {
				collectFields(arg, seen)
			}
		}
	case *parse.FieldNode:
		if len(n.Ident) > 0 {
			seen[n.Ident[0]] = struct{}{}
		}
	case *parse.IfNode:
		collectFields(n.Pipe, seen)
		collectFields(n.List, seen)
		collectFields(n.ElseList, seen)
	case *parse.RangeNode:
		collectFields(n.Pipe, seen)
		collectFields(n.List, seen)
		collectFields(n.ElseList, seen)
	case *parse.WithNode:
		collectFields(n.Pipe, seen)
		collectFields(n.List, seen)
		collectFields(n.ElseList, seen)
	}
}
