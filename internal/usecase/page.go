package usecase

import domain "github.com/Markko1982/order-manager/internal/entity"

// PageRequest is zero-based.
type PageRequest struct {
	Number int
	Size   int
}

func (p PageRequest) Offset() int { return p.Number * p.Size }

// Normalize clamps the request to sane bounds.
func (p PageRequest) Normalize(defaultSize, maxSize int) PageRequest {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

type Page[T any] struct {
	Content       []T
	Number        int
	Size          int
	TotalElements int64
}

func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}

// MapPage converts the content of a page, keeping its metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Content))
	for _, v := range p.Content {
		out = append(out, fn(v))
	}
	return Page[U]{Content: out, Number: p.Number, Size: p.Size, TotalElements: p.TotalElements}
}

// StatusFilter selects either every order or only one status. The filter is
// applied by the store so that page totals match the filtered set.
type StatusFilter struct {
	status domain.Status
	set    bool
}

func AnyStatus() StatusFilter { return StatusFilter{} }

func OnlyStatus(s domain.Status) StatusFilter { return StatusFilter{status: s, set: true} }

func (f StatusFilter) Status() (domain.Status, bool) { return f.status, f.set }
