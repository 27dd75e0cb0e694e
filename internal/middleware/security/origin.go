package security

import (
	"net/http"
	"net/url"
	"strings"
)

// SameOrigin reports whether a state-changing request comes from the host
// it was sent to. Requests without Origin and Referer are allowed, since
// browsers always send one of them on cross-site writes.
func SameOrigin(r *http.Request) bool {
	source := r.Header.Get("Origin")
	if source == "" || source == "null" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		return r.Header.Get("Origin") != "null"
	}
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return strings.EqualFold(u.Host, host)
}

// RequireSameOrigin rejects cross-origin writes with onReject, or a plain
// 403 when onReject is nil.
func RequireSameOrigin(onReject func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if !SameOrigin(r) {
					if onReject != nil {
						onReject(w, r)
					} else {
						http.Error(w, "cross-origin request rejected", http.StatusForbidden)
					}
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
