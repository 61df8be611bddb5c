package resolve

import "strings"

// Route classifies a question as answerable from tables or from the
// document store.
type Route string

const (
	RouteStructured   Route = "structured"
	RouteUnstructured Route = "unstructured"
)

// unstructuredMarkers are phrases that point at document content rather
// than tabular data. Anything else resolves to the structured route.
var unstructuredMarkers = []string{
	"document", "documents", "doc ", "pdf",
	"story", "stories", "article", "articles",
	"handbook", "manual", "notes", "report says",
	"according to the text", "what does the text",
	"summarize", "summarise",
}

// Router assigns exactly one route to every question. It is a total
// function: empty or ambiguous input defaults to the structured route.
type Router struct {
	markers []string
}

func NewRouter() *Router {
	return &Router{markers: unstructuredMarkers}
}

func (r *Router) Route(question string) Route {
	lowered := strings.ToLower(question)
	for _, marker := range r.markers {
		if strings.Contains(lowered, marker) {
			return RouteUnstructured
		}
	}
	return RouteStructured
}
