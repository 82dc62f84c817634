// Package domain holds the core types shared by every layer: content
// items flowing in from the source, chunks flowing through the pipeline,
// and points stored in the vector database.
package domain

// Metadata carries the citation-facing attributes of a content item.
// It is inherited unchanged by every chunk split from the item.
type Metadata struct {
	Title    string
	URL      string
	Type     string
	Language string
	Extra    map[string]any
}

// ContentItem is one raw document from the content source, immutable
// once read.
type ContentItem struct {
	ID       int
	Text     string
	Metadata Metadata
}

// Chunk is a bounded-length slice of one item's text, the unit of
// embedding and storage. ID is unique within a single indexing run.
type Chunk struct {
	ID           int
	SourceItemID int
	Text         string
	Metadata     Metadata
}

// Payload is the stored per-point record. ContentHash always equals
// ContentHash(Text); it doubles as the cross-run deduplication key.
type Payload struct {
	Text        string         `json:"text"`
	ContentHash string         `json:"content_hash"`
	SourceID    int            `json:"source_item_id"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Type        string         `json:"type"`
	Language    string         `json:"language,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Point is one vector-store record, addressed by an id unique within
// its collection.
type Point struct {
	ID      int
	Vector  []float32
	Payload Payload
}

// SearchResult is one similarity hit, ordered by descending score.
type SearchResult struct {
	ID      int
	Score   float32
	Payload Payload
}

// CollectionInfo summarizes a vector-store collection.
type CollectionInfo struct {
	Name        string
	PointsCount int
	VectorSize  int
	Distance    string
	Status      string
}
