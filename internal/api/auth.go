// Marquee - Featured Content Catalog Service
// Copyright 2026 Marquee Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminAuth guards the admin route group with a static bearer token.
// Comparison is constant-time. The router only mounts the admin group when a
// token is configured, so an empty configured token never reaches this check.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || presented == "" {
				respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Missing bearer token", nil)
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid bearer token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
