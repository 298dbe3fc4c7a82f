//go:build !(js && wasm)

package backend

import "net/http"

// includeCredentials is a no-op outside the browser; cookies come from the http.Client jar.
func includeCredentials(*http.Request) {}
