package services

import "context"

// PageFetcher loads the page at cursor and returns its items and the cursor of the following page.
// An empty next cursor ends the sequence.
type PageFetcher[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// Pages is a lazy sequence of pages pulled one at a time until exhausted.
//
//	pages := NewPages(first, fetch)
//	for pages.Next(ctx) {
//		use(pages.Page())
//	}
//	if err := pages.Err(); err != nil { ... }
type Pages[T any] struct {
	cursor string
	fetch  PageFetcher[T]
	page   []T
	err    error
	done   bool
}

// NewPages starts a sequence at the first cursor.
func NewPages[T any](first string, fetch PageFetcher[T]) *Pages[T] {
	return &Pages[T]{cursor: first, fetch: fetch}
}

// Next fetches the following page. It returns false once the sequence is exhausted or failed.
func (p *Pages[T]) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}

	items, next, err := p.fetch(ctx, p.cursor)
	if err != nil {
		p.err = err
		p.page = nil
		return false
	}

	p.page = items
	p.cursor = next
	if next == "" {
		p.done = true
	}
	return true
}

// Page returns the items of the current page.
func (p *Pages[T]) Page() []T {
	return p.page
}

// Err returns the error that stopped the sequence, if any.
func (p *Pages[T]) Err() error {
	return p.err
}

// Collect drains every page in order. A failure on any page discards the partial result.
func Collect[T any](ctx context.Context, p *Pages[T]) ([]T, error) {
	var all []T
	for p.Next(ctx) {
		all = append(all, p.Page()...)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return all, nil
}
