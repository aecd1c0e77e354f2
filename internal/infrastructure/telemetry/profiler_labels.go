package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Label keys attached to profiling samples. Keep this set small: every
// distinct key/value pair creates a new profile series in Pyroscope.
const (
	// ProfilingLabelController is the resource handling the request, such
	// as "listings" or "webhooks".
	ProfilingLabelController = "controller"
	// ProfilingLabelRoute is the route template, never the raw URL path.
	ProfilingLabelRoute = "route"
	// ProfilingLabelMethod is the HTTP method.
	ProfilingLabelMethod = "method"
	// ProfilingLabelPlatform is the marketplace platform (ebay, depop, ...).
	ProfilingLabelPlatform = "platform"
	// ProfilingLabelOperation is a background operation name, such as
	// "reconcile" or "cross_delist".
	ProfilingLabelOperation = "operation"
)

// MaxLabelValueLength caps label values so a malformed route or platform
// identifier cannot blow up series cardinality.
const MaxLabelValueLength = 128

// highCardinalityLabels are keys that are never safe as profiling labels
// because each value is effectively unique per request. sanitizeLabels
// drops them silently.
//
// platform is deliberately absent: only a handful of marketplaces exist,
// so its cardinality stays bounded.
var highCardinalityLabels = map[string]struct{}{
	"user_id":    {},
	"request_id": {},
	"listing_id": {},
	"product_id": {},
	"event_id":   {},
	"trace_id":   {},
	"span_id":    {},
	"session_id": {},
}

// WithProfilingLabels runs fn with the given labels attached to its
// goroutine's profiling samples, so CPU and memory profiles can be
// sliced by route, platform, or operation in the Pyroscope UI.
//
// Labels are sanitized first: empty and high-cardinality entries are
// dropped and overlong values truncated. If nothing survives, fn runs
// unlabeled. The map is copied, so the caller may reuse it afterwards.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}

	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels turns a label map into the flat key/value slice the
// pprof API expects. Keys are normalized to snake_case, sorted for
// deterministic output, and filtered against highCardinalityLabels.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" {
			continue
		}
		if _, skip := highCardinalityLabels[key]; skip {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}

		normalized := normalizeLabelKey(key)
		if normalized == "" {
			continue
		}
		pairs = append(pairs, normalized, value)
	}

	return pairs
}

// normalizeLabelKey lowercases a key and strips everything that is not
// alphanumeric or underscore, mapping spaces and dashes to underscores.
func normalizeLabelKey(key string) string {
	key = strings.ToLower(key)

	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == ' ' || c == '-':
			out = append(out, '_')
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_':
			out = append(out, c)
		}
	}
	return string(out)
}

// HTTPRequestLabels builds the standard label set for an HTTP request.
// Empty components are omitted so handlers outside the API tree do not
// produce blank label values.
func HTTPRequestLabels(controller, route, method string) map[string]string {
	labels := make(map[string]string, 3)
	if controller != "" {
		labels[ProfilingLabelController] = controller
	}
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	return labels
}

// OperationLabels builds the label set for a named background operation,
// merging in any extra labels the caller provides.
func OperationLabels(operation string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelOperation] = operation
	maps.Copy(labels, extraLabels)
	return labels
}
