package webhook

import "net/http"

var Snippet = snippet

func SetTransport(i *Invoker, rt http.RoundTripper) {
	i.client.Transport = rt
}
