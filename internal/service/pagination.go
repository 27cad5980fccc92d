package service

import "math"

// Page size bounds shared by every paged query.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is a 1-based page number and a page size.
type PageRequest struct {
	Number int
	Size   int
}

// Normalize treats a non-positive number as 1 and a non-positive size as
// DefaultPageSize, and caps size at MaxPageSize. Number is capped so the
// offset of the page stays representable.
func (p PageRequest) Normalize() PageRequest {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if maxNumber := math.MaxInt / p.Size; p.Number > maxNumber {
		p.Number = maxNumber
	}
	return p
}

// Offset is the number of rows skipped before this page.
// It is never negative, including for requests that were not normalized.
func (p PageRequest) Offset() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return (math.MaxInt / p.Size) * p.Size
	}
	return (p.Number - 1) * p.Size
}

// hasNext reports whether rows remain after a page that skipped offset rows and returned n.
func hasNext(total int64, offset, n int) bool {
	return total-int64(n) > int64(offset)
}
