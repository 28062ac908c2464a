package cache

import "net/url"

// Descriptor identifies one logical query. It is comparable; two
// descriptors built from the same resource and parameters are equal
// regardless of the order the parameters were set in.
type Descriptor struct {
	Resource string
	Query    string
}

// NewDescriptor builds a descriptor. Parameters are encoded in sorted key
// order.
func NewDescriptor(resource string, params url.Values) Descriptor {
	return Descriptor{Resource: resource, Query: params.Encode()}
}

// Params decodes the descriptor's query parameters.
func (d Descriptor) Params() url.Values {
	v, err := url.ParseQuery(d.Query)
	if err != nil {
		return url.Values{}
	}
	return v
}

func (d Descriptor) String() string {
	if d.Query == "" {
		return d.Resource
	}
	return d.Resource + "?" + d.Query
}
