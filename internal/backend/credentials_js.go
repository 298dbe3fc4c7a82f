//go:build js && wasm

package backend

import "net/http"

// includeCredentials asks Go's fetch transport to send cookies cross-origin, the
// equivalent of fetch(..., {credentials: "include"}).
func includeCredentials(req *http.Request) {
	req.Header.Set("js.fetch:credentials", "include")
}
