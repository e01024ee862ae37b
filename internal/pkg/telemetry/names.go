package telemetry

// Span names shared by the resolution engine and its adapters.
const (
	SpanResolve       = "sos.resolve"
	SpanCategory      = "sos.category"
	SpanReverseLookup = "sos.reverse_geocode"
	SpanOverpassQuery = "overpass.query"
)

// TracerName is the instrumentation scope used for all spans.
const TracerName = "github.com/yash1732/gigguard"
