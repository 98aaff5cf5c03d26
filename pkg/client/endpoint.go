package client

// Endpoint describes one search endpoint of the API: the URL path, the name
// of the content container in the JSON body and the name of the hits array
// inside it.
type Endpoint struct {
	Path        string
	ContentName string
	HitsName    string
}

// Built-in search endpoints.
var (
	Documents = Endpoint{Path: "dokumentlista", ContentName: "dokumentlista", HitsName: "dokument"}
	Persons   = Endpoint{Path: "personlista", ContentName: "personlista", HitsName: "person"}
	Votes     = Endpoint{Path: "voteringlista", ContentName: "voteringlista", HitsName: "votering"}
)

// Request parameters the transport always controls.
const (
	// ParamFormat selects the output format; always "json".
	ParamFormat = "utformat"

	// ParamPage is the 1-based page number.
	ParamPage = "p"
)
