package cache

import (
	"net/url"
	"strings"
)

// keyPrefix namespaces page keys in Redis.
const keyPrefix = "riksdag:page:"

// Key identifies one cached search page: the endpoint plus the complete
// request parameters, page number included.
type Key struct {
	Endpoint string
	Params   url.Values
}

// NewKey returns the key of the page of endpoint requested with params.
// Parameters without a value are dropped.
func NewKey(endpoint string, params url.Values) Key {
	clean := make(url.Values, len(params))
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				clean.Add(k, v)
			}
		}
	}
	return Key{Endpoint: strings.Trim(endpoint, "/"), Params: clean}
}

// String renders the Redis key. Parameters are sorted, so equal queries map
// to equal keys regardless of the order they were set in:
//
//	riksdag:page:dokumentlista?doktyp=mot&p=2&sok=klimat&utformat=json
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(strings.Trim(k.Endpoint, "/"))
	if enc := k.Params.Encode(); enc != "" {
		b.WriteByte('?')
		b.WriteString(enc)
	}
	return b.String()
}
