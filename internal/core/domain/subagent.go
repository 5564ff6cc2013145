package domain

// SubAgentFile is the parsed form of one markdown sub-agent document.
// Known front-matter keys are promoted to typed fields; anything else the
// document declared lands in Extra so unknown keys never reject a document.
type SubAgentFile struct {
	// Path is the tree path of the source blob.
	Path string `json:"path"`

	// SHA is the blob's content hash from the hosting service.
	SHA string `json:"sha"`

	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tools       []string `json:"tools,omitempty"`
	Category    string   `json:"category,omitempty"`
	Version     string   `json:"version,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Author      string   `json:"author,omitempty"`

	// Extra holds front-matter keys with no typed field.
	Extra map[string]string `json:"extra,omitempty"`

	// Body is the markdown content after the front-matter block.
	Body string `json:"body"`

	// HadFrontMatter records whether a proper delimited block was found,
	// as opposed to heuristic extraction from the body.
	HadFrontMatter bool `json:"had_front_matter"`
}
