// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import "testing"

func TestInfo(t *testing.T) {
	tests := []struct {
		name      string
		info      Info
		wantLabel string
		wantText  string
	}{
		{
			name:      "injected",
			info:      Info{Version: "v1.4.0", GitCommit: "abc1234", BuildTime: "2026-03-01T12:00:00Z"},
			wantLabel: "v1.4.0",
			wantText:  "sitecms v1.4.0 (commit: abc1234, built: 2026-03-01T12:00:00Z)",
		},
		{
			name:      "local build",
			info:      Info{},
			wantLabel: "dev",
			wantText:  "sitecms dev (commit: unknown, built: unknown)",
		},
		{
			name:      "version without commit",
			info:      Info{Version: "v0.9.0"},
			wantLabel: "v0.9.0",
			wantText:  "sitecms v0.9.0 (commit: unknown, built: unknown)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Label(); got != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", got, tt.wantLabel)
			}
			if got := tt.info.String(); got != tt.wantText {
				t.Errorf("String() = %q, want %q", got, tt.wantText)
			}
		})
	}
}
