package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys attached to client metrics.
const (
	AttrEnvironment = attribute.Key("environment")
	AttrMethod      = attribute.Key("http.method")
	AttrTarget      = attribute.Key("target")
	AttrResult      = attribute.Key("result")
	AttrStatus      = attribute.Key("http.status")
	AttrEventTag    = attribute.Key("event.tag")
	AttrChannel     = attribute.Key("channel")
)

// Result values.
const (
	ResultOK        = "ok"
	ResultHTTPError = "http_error"
	ResultNetwork   = "network_error"
	ResultCanceled  = "canceled"
	ResultDropped   = "dropped"
	ResultMalformed = "malformed"
)

// RequestAttributes returns attributes for a REST call.
func RequestAttributes(method, target, result string, status int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(Environment()),
		AttrMethod.String(method),
		AttrTarget.String(target),
		AttrResult.String(result),
		AttrStatus.Int(status),
	}
}

// FrameAttributes returns attributes for a streaming frame.
func FrameAttributes(channel, tag, result string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEnvironment.String(Environment()),
		AttrChannel.String(channel),
		AttrEventTag.String(tag),
		AttrResult.String(result),
	}
}
