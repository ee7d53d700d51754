package openrouter

import "net/http"

// headerTransport добавляет заголовки идентификации клиента, которые ждет OpenRouter.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if t.referer != "" {
		r.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		r.Header.Set("X-Title", t.title)
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/json")
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
