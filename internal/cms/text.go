// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cms

import (
	"html"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"
)

// MaxURLLength bounds every URL-typed field.
const MaxURLLength = 2048

var (
	strictPolicy = bluemonday.StrictPolicy()
	richPolicy   = bluemonday.UGCPolicy()

	hexColor = regexp.MustCompile(`^#(?:[0-9a-f]{3}|[0-9a-f]{6})$`)
)

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// maxSanitizePasses bounds settle. Input that is still changing after that
// many passes is dropped.
const maxSanitizePasses = 32

// settle applies pass, trims and truncates until the text stops changing,
// so sanitizing the result again returns it unchanged.
func settle(s string, limit int, pass func(string) string) string {
	for range maxSanitizePasses {
		next := strings.TrimSpace(truncate(pass(s), limit))
		if next == s {
			return s
		}
		s = next
	}
	return ""
}

func stripTags(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// scalar returns the string form of strings and numbers and "" otherwise.
func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String()
	default:
		return ""
	}
}

// PlainText sanitizes v into trimmed, tag-free text of at most limit runes.
func PlainText(v gjson.Result, limit int) string {
	return CleanText(scalar(v), limit)
}

// CleanText strips markup from s, trims it and cuts it to limit runes.
func CleanText(s string, limit int) string {
	return settle(strings.TrimSpace(s), limit, stripTags)
}

// RichText sanitizes v into user-generated-content HTML of at most limit runes.
func RichText(v gjson.Result, limit int) string {
	return settle(strings.TrimSpace(scalar(v)), limit, richPolicy.Sanitize)
}

// SafeURL accepts http(s), mailto and tel URLs plus site-relative paths and
// fragments. Anything else becomes "".
func SafeURL(v gjson.Result) string {
	s := strings.TrimSpace(scalar(v))
	if s == "" || len(s) > MaxURLLength || strings.ContainsAny(s, " \t\r\n<>\"'`\\") {
		return ""
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return ""
		}
		return s
	case strings.HasPrefix(lower, "mailto:"), strings.HasPrefix(lower, "tel:"):
		if len(s) == strings.Index(s, ":")+1 {
			return ""
		}
		return s
	case strings.HasPrefix(s, "//"):
		return ""
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "#"):
		return s
	default:
		return ""
	}
}

// NormalizeEmail lowercases and trims s and returns it when it is a bare,
// valid e-mail address with a dotted domain. It returns "" otherwise.
func NormalizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > 254 {
		return ""
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return ""
	}
	if domain := s[strings.LastIndex(s, "@")+1:]; !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return ""
	}
	return s
}

// Email is NormalizeEmail over a JSON value.
func Email(v gjson.Result) string {
	return NormalizeEmail(scalar(v))
}

// items returns the elements of v, or nothing when v is not an array.
func items(v gjson.Result) []gjson.Result {
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}

func color(v gjson.Result, def string) string {
	s := strings.ToLower(strings.TrimSpace(scalar(v)))
	if hexColor.MatchString(s) {
		return s
	}
	return def
}

func enum(v gjson.Result, def string, allowed ...string) string {
	s := strings.TrimSpace(scalar(v))
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return def
}

func boolean(v gjson.Result, def bool) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return def
	}
}

func clampInt(v gjson.Result, def, lo, hi int) int {
	if v.Type != gjson.Number {
		return def
	}
	return max(lo, min(int(v.Int()), hi))
}

// textField reads key from obj, falling back to def when the key is absent.
func textField(obj gjson.Result, key, def string, limit int) string {
	v := obj.Get(key)
	if !v.Exists() {
		return def
	}
	return PlainText(v, limit)
}

func urlField(obj gjson.Result, key, def string) string {
	v := obj.Get(key)
	if !v.Exists() {
		return def
	}
	return SafeURL(v)
}

// textList sanitizes an array of strings, dropping empty entries.
func textList(v gjson.Result, def []string, maxItems, limit int) []string {
	if !v.Exists() {
		return append([]string{}, def...)
	}
	out := []string{}
	for _, item := range items(v) {
		if len(out) == maxItems {
			break
		}
		if s := PlainText(item, limit); s != "" {
			out = append(out, s)
		}
	}
	return out
}
