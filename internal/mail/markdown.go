// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mail

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	emailPolicy = bluemonday.UGCPolicy()
	textPolicy  = bluemonday.StrictPolicy()
)

// RenderMarkdown converts a Markdown body to sanitized HTML. Raw HTML in the
// source is dropped by goldmark and anything unsafe is removed afterwards.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return emailPolicy.Sanitize(buf.String()), nil
}

// PlainText strips markup from rendered HTML for the text/plain part.
func PlainText(rendered string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(rendered)))
}
