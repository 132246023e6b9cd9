package observability

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHTTPClient returns an http.Client instrumented with otelhttp so outbound
// ChatModel requests (OpenAI/Anthropic/Google) are traced. base is reused as
// the transport's wrapped RoundTripper if given.
func NewHTTPClient(base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	base.Transport = otelhttp.NewTransport(transport)
	return base
}

// WithHeaders wraps client so every outbound request carries the given
// static headers, e.g. a gateway API key.
func WithHeaders(client *http.Client, headers map[string]string) *http.Client {
	inner := client.Transport
	if inner == nil {
		inner = http.DefaultTransport
	}
	client.Transport = headerTransport{inner: inner, headers: headers}
	return client
}

type headerTransport struct {
	inner   http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.inner.RoundTrip(clone)
}
