// Package clientip resolves the peer address of HTTP requests and guards
// local-only endpoints.
//
// The daemon is reached directly by the browser extension and local
// tools, so the address is taken from the TCP peer (RemoteAddr). Proxy
// headers such as X-Forwarded-For are ignored: anyone can set them.
//
// # Usage
//
//	r := chi.NewRouter()
//	r.Use(clientip.Middleware)
//	r.Use(clientip.LoopbackOnly(log))
//
//	// later, in a handler
//	ip := clientip.FromContext(r.Context())
package clientip
