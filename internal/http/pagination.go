package http

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

var errInvalidPage = errors.New("that page contains no results")

// lastPage is the sentinel for ?page=last.
const lastPage = -1

// Pagination describes one page of a list view.
type Pagination struct {
	Number   int
	Size     int
	Total    int64
	NumPages int
}

func newPagination(number, size int, total int64) (*Pagination, error) {
	numPages := int((total + int64(size) - 1) / int64(size))
	// An empty list still has its first page.
	if numPages == 0 {
		numPages = 1
	}
	if number == lastPage {
		number = numPages
	}
	if number < 1 || number > numPages {
		return nil, errInvalidPage
	}
	return &Pagination{Number: number, Size: size, Total: total, NumPages: numPages}, nil
}

func (p *Pagination) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p *Pagination) HasPrevious() bool { return p.Number > 1 }
func (p *Pagination) HasNext() bool     { return p.Number < p.NumPages }

// HasOtherPages tells templates whether to draw the pager at all.
func (p *Pagination) HasOtherPages() bool {
	return p.NumPages > 1
}

func (p *Pagination) PreviousNumber() int { return p.Number - 1 }
func (p *Pagination) NextNumber() int     { return p.Number + 1 }

// parsePageParam reads ?page=. Missing means the first page; "last" is
// resolved once the total is known.
func parsePageParam(c *gin.Context) (int, error) {
	raw := c.Query("page")
	switch raw {
	case "":
		return 1, nil
	case "last":
		return lastPage, nil
	}
	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		return 0, errInvalidPage
	}
	return number, nil
}

// paginate loads the page requested by the query string; list returns one
// window of rows and the total row count. Unknown pages render the 404 page
// and report ok=false.
func paginate[T any](c *gin.Context, size int, list func(limit, offset int) ([]T, int64, error)) ([]T, *Pagination, bool) {
	number, err := parsePageParam(c)
	if err != nil {
		renderNotFound(c)
		return nil, nil, false
	}

	offset := 0
	if number > 1 {
		offset = (number - 1) * size
	}
	items, total, err := list(size, offset)
	if err != nil {
		renderServerError(c, err, "list page")
		return nil, nil, false
	}

	page, err := newPagination(number, size, total)
	if err != nil {
		renderNotFound(c)
		return nil, nil, false
	}

	// "last" was fetched from offset 0; fetch the real window.
	if number == lastPage && page.Number > 1 {
		items, _, err = list(size, page.Offset())
		if err != nil {
			renderServerError(c, err, "list page")
			return nil, nil, false
		}
	}
	return items, page, true
}
