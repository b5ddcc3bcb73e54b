package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDefaultCSRFConfig(t *testing.T) {
	key := []byte("12345678901234567890123456789012")

	prod := DefaultCSRFConfig(key, []string{"https://admin.example.com/", "cms.example.com:8443"}, false)
	want := []string{"admin.example.com", "cms.example.com:8443"}
	if len(prod.TrustedOrigins) != len(want) {
		t.Fatalf("TrustedOrigins = %v, want %v", prod.TrustedOrigins, want)
	}
	for i, origin := range want {
		if prod.TrustedOrigins[i] != origin {
			t.Errorf("TrustedOrigins[%d] = %q, want %q", i, prod.TrustedOrigins[i], origin)
		}
	}

	dev := DefaultCSRFConfig(key, nil, true)
	for _, origin := range dev.TrustedOrigins {
		if strings.Contains(origin, "://") {
			t.Errorf("TrustedOrigin %q should be host:port, not a URL", origin)
		}
	}
	if len(dev.TrustedOrigins) != 2 {
		t.Errorf("dev TrustedOrigins = %v, want the two Vite origins", dev.TrustedOrigins)
	}
}

func TestCSRF_CrossSiteRequests(t *testing.T) {
	key := []byte("12345678901234567890123456789012")
	protect := CSRF(DefaultCSRFConfig(key, nil, false))
	handler := SkipCSRF("/api/track", "/api/contact")(protect(okHandler))

	tests := []struct {
		name       string
		method     string
		path       string
		fetchSite  string
		wantStatus int
	}{
		{"same-origin write", http.MethodPut, "/api/cms", "same-origin", http.StatusOK},
		{"cross-site write", http.MethodPut, "/api/cms", "cross-site", http.StatusForbidden},
		{"cross-site read", http.MethodGet, "/api/cms", "cross-site", http.StatusOK},
		{"cross-site beacon", http.MethodPost, "/api/track", "cross-site", http.StatusOK},
		{"cross-site contact form", http.MethodPost, "/api/contact", "cross-site", http.StatusOK},
		{"non-browser client", http.MethodPost, "/api/login", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "https://example.com"+tt.path, nil)
			if tt.fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				if msg := decodeError(t, rec); msg != MsgForbidden {
					t.Errorf("error = %q, want %q", msg, MsgForbidden)
				}
			}
		})
	}
}

func TestOriginHost(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://example.com", "example.com"},
		{"http://localhost:5173/", "localhost:5173"},
		{" example.org ", "example.org"},
	}
	for _, tt := range tests {
		if got := originHost(tt.in); got != tt.want {
			t.Errorf("originHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
