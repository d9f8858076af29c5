package platform

import "net/http"

// botTransport is an http.RoundTripper that authenticates every request
// with the bot account's bearer token.
type botTransport struct {
	transport http.RoundTripper
	token     string
}

func (c *botTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so callers sharing the request are not mutated
	clonedReq := req.Clone(req.Context())
	clonedReq.Header.Set("Authorization", "Bearer "+c.token)
	return c.transport.RoundTrip(clonedReq)
}

func newBotClient(token string) *http.Client {
	return &http.Client{
		Transport: &botTransport{
			transport: http.DefaultTransport,
			token:     token,
		},
	}
}
