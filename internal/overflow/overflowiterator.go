// Package overflow provides iteration over the linked page chains the file
// organizations attach to full primary pages and buckets.
package overflow

import "fmt"

// None - Sentinel page id meaning a chain has no further page
const None int32 = -1

// Page - One page in an overflow chain. Implementations carry their own
// content; the iterator only needs the link to the following page.
type Page interface {
	// NextPageID - Returns the id of the page following this one in the chain, or None
	NextPageID() int32
}

// FetchFunc - Callback that loads the chain page with the given id
type FetchFunc func(pageID int32) (Page, error)

// Pages - Is used to iterate over the pages of one overflow chain one by one.
type Pages struct {
	fetch  FetchFunc
	nextID int32
}

// NewPages - Returns a pointer to a new Pages struct
//   - fetch is the callback that loads a chain page given its id
//   - head is the id of the first page in the chain, or None for an empty chain
func NewPages(fetch FetchFunc, head int32) *Pages {
	return &Pages{
		fetch:  fetch,
		nextID: head,
	}
}

// HasNext - Returns true if there are more pages to be fetched from a call to Next.
func (O *Pages) HasNext() bool {
	return O.nextID != None
}

// Next - Returns the next page in the chain.
// It returns:
//   - page is the next overflow page.
//   - err is either a standard error or an error stating the chain is exhausted.
func (O *Pages) Next() (page Page, err error) {
	if O.nextID == None {
		err = fmt.Errorf("no more pages in overflow chain")
		return
	}

	page, err = O.fetch(O.nextID)
	if err != nil {
		err = fmt.Errorf("error while retrieving page from overflow chain: %s", err)
		return
	}

	O.nextID = page.NextPageID()

	return
}
