package store

import (
	"fmt"

	"github.com/aarondl/opt/omit"
)

// DefaultPageLimit is the page size used when PageParams.Limit is unset,
// matching the Stripe API default.
const DefaultPageLimit = 10

// PageParams selects a window of a collection. StartingAfter and
// EndingBefore are record ids and are mutually exclusive.
type PageParams struct {
	Limit         omit.Val[int]
	StartingAfter string
	EndingBefore  string
}

// Page is one window of a collection in insertion order.
type Page struct {
	Records []Record
	HasMore bool
}

// Page returns a cursor-paginated window of kind. Cursors must reference
// records that exist in the collection.
func (s *Store) Page(kind string, p PageParams) (Page, error) {
	if p.StartingAfter != "" && p.EndingBefore != "" {
		return Page{}, fmt.Errorf("%w: starting_after and ending_before are mutually exclusive", ErrInvalidPage)
	}
	limit := p.Limit.GetOr(DefaultPageLimit)
	if limit <= 0 {
		return Page{}, fmt.Errorf("%w: limit %d", ErrInvalidPage, limit)
	}

	c := s.lookup(kind)
	start, end := 0, c.Len()
	switch {
	case p.StartingAfter != "":
		i := c.index(p.StartingAfter)
		if i < 0 {
			return Page{}, fmt.Errorf("%w: %s %q", ErrNotFound, kind, p.StartingAfter)
		}
		start = i + 1
	case p.EndingBefore != "":
		i := c.index(p.EndingBefore)
		if i < 0 {
			return Page{}, fmt.Errorf("%w: %s %q", ErrNotFound, kind, p.EndingBefore)
		}
		end = i
		start = max(0, end-limit)
	}

	var page Page
	stop := min(end, start+limit)
	if p.EndingBefore != "" {
		page.HasMore = start > 0
	} else {
		page.HasMore = stop < end
	}
	page.Records = make([]Record, 0, stop-start)
	for _, id := range c.order[start:stop] {
		page.Records = append(page.Records, c.records[id])
	}
	return page, nil
}
