package extract

import (
	"context"
)

// Parser turns a publicly reachable document URL into text segments.
type Parser interface {
	Parse(ctx context.Context, url string) ([]Segment, error)
}

// Segment is one page or section returned by the parser.
type Segment struct {
	Page int
	Text string
}

// TextExtractor is the contract the pipeline depends on. An empty string means
// no usable text could be obtained.
type TextExtractor interface {
	Extract(ctx context.Context, url string) string
}
