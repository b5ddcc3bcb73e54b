// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxBriefLength caps the editor brief sent to a provider.
const MaxBriefLength = 2000

// SectionPrompt asks for a replacement of one CMS section. example is the
// section's current JSON and fixes the shape the model must return.
func SectionPrompt(section string, example json.RawMessage, brief string) Prompt {
	system := fmt.Sprintf(`You are a senior marketing copywriter editing the %q section of a company website.

You must respond with a single valid JSON object (no markdown code fences, no extra text) that has exactly the same keys and nesting as this example:

%s

Important rules:
- Keep every key from the example and do not add new ones
- Strings must be plain text, except "description" fields which may use <p>, <ul>, <li>, <strong> and <em>
- URLs must be absolute https:// links, site paths starting with / or anchors starting with #
- Keep headlines short and concrete
- Respond ONLY with the JSON object, no other text`, section, string(example))

	brief = strings.TrimSpace(brief)
	if r := []rune(brief); len(r) > MaxBriefLength {
		brief = string(r[:MaxBriefLength])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Rewrite the %s section.\n\n", section)
	if brief != "" {
		fmt.Fprintf(&sb, "Brief from the editor:\n%s\n", brief)
	}

	return Prompt{System: system, User: sb.String()}
}
