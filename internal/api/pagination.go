package api

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
)

const maxPageSize = 100

var errInvalidPage = service.NotFound("invalid page")

// Page is a paginated listing with absolute links to its neighbours
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// pageRequest is a parsed pagination query
type pageRequest struct {
	Limit  int
	Offset int
	// number is the 1-based page in page/limit mode, 0 in limit/offset mode
	number int
}

func positiveInt(raw string, fallback int) (int, bool) {
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func pageSize(c *gin.Context, fallback int) int {
	size, ok := positiveInt(c.Query("limit"), fallback)
	if !ok {
		size = fallback
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return size
}

// pageNumberRequest reads ?page=N&limit=M
func pageNumberRequest(c *gin.Context, defaultSize int) (pageRequest, error) {
	number, ok := positiveInt(c.Query("page"), 1)
	if !ok {
		return pageRequest{}, errInvalidPage
	}
	size := pageSize(c, defaultSize)
	return pageRequest{Limit: size, Offset: (number - 1) * size, number: number}, nil
}

// limitOffsetRequest reads ?limit=M&offset=K
func limitOffsetRequest(c *gin.Context, defaultSize int) pageRequest {
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return pageRequest{Limit: pageSize(c, defaultSize), Offset: offset}
}

// newPage builds the page payload. A page number past the last page is rejected.
func newPage[T any](c *gin.Context, req pageRequest, total int64, results []T) (Page[T], error) {
	if req.number > 1 && int64(req.Offset) >= total {
		return Page[T]{}, errInvalidPage
	}
	if results == nil {
		results = []T{}
	}

	page := Page[T]{Count: total, Results: results}
	if int64(req.Offset+req.Limit) < total {
		page.Next = neighbourLink(c, req, req.Offset+req.Limit)
	}
	if req.Offset > 0 {
		prev := req.Offset - req.Limit
		if prev < 0 {
			prev = 0
		}
		page.Previous = neighbourLink(c, req, prev)
	}
	return page, nil
}

func neighbourLink(c *gin.Context, req pageRequest, offset int) *string {
	q := c.Request.URL.Query()
	if req.number > 0 {
		if n := offset/req.Limit + 1; n > 1 {
			q.Set("page", strconv.Itoa(n))
		} else {
			q.Del("page")
		}
	} else if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}

	u := url.URL{
		Scheme:   requestScheme(c),
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: q.Encode(),
	}
	link := u.String()
	return &link
}

func requestScheme(c *gin.Context) string {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}
