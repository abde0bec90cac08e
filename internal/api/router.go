package api

import (
	"net/http"
	"strings"
)

type route struct {
	pattern string
	handler http.Handler
}

// Router dispatches on the request path. A pattern ending in "/" matches
// its whole subtree; any other pattern matches only itself. Exact routes
// win over subtrees, and longer subtrees win over shorter ones.
type Router struct {
	exact    map[string]http.Handler
	subtrees []route
}

func NewRouter() *Router {
	return &Router{exact: make(map[string]http.Handler)}
}

func (r *Router) Handle(pattern string, handler http.Handler) {
	if strings.HasSuffix(pattern, "/") {
		r.subtrees = append(r.subtrees, route{pattern: pattern, handler: handler})
		return
	}
	r.exact[pattern] = handler
}

func (r *Router) HandleFunc(pattern string, fn http.HandlerFunc) {
	r.Handle(pattern, fn)
}

// Paths lists the exact routes, for use as metric labels.
func (r *Router) Paths() []string {
	paths := make([]string, 0, len(r.exact))
	for p := range r.exact {
		paths = append(paths, p)
	}
	return paths
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if h, ok := r.exact[req.URL.Path]; ok {
		h.ServeHTTP(w, req)
		return
	}

	var best *route
	for i := range r.subtrees {
		rt := &r.subtrees[i]
		if strings.HasPrefix(req.URL.Path, rt.pattern) && (best == nil || len(rt.pattern) > len(best.pattern)) {
			best = rt
		}
	}
	if best != nil {
		best.handler.ServeHTTP(w, req)
		return
	}

	http.NotFound(w, req)
}
