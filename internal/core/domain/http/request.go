package httpdomain

import "net/url"

// RequestContext is one logical call against the backend.
// Body is kept as bytes so a request can be replayed after a token refresh.
type RequestContext struct {
	Method      string
	Path        string
	Query       url.Values
	Headers     map[string]string
	Body        []byte
	ContentType string
	RequestID   string
}

// Response is a fully read backend response.
type Response struct {
	Status  int
	Headers map[string][]string
	Body    []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}
