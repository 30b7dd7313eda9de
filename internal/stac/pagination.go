package stac

import (
	"net/url"
	"strconv"
)

// PaginationInfo holds information needed to generate pagination links
type PaginationInfo struct {
	BaseURL       string
	CurrentPage   int
	Limit         int
	TotalCount    *int // nil if unknown
	ReturnedCount int
	QueryParams   url.Values // Original query parameters
}

// BuildPaginationLinks generates next and prev links based on pagination info
func BuildPaginationLinks(info PaginationInfo) []*Link {
	links := make([]*Link, 0, 2)

	// A count-only request has no pages
	if info.Limit <= 0 {
		return links
	}

	if info.CurrentPage > 1 {
		prevURL := buildPageURL(info.BaseURL, info.QueryParams, info.CurrentPage-1)
		links = append(links, &Link{
			Rel:  "prev",
			Href: prevURL,
			Type: "application/geo+json",
		})
	}

	hasNextPage := false
	if info.TotalCount != nil {
		totalPages := (*info.TotalCount + info.Limit - 1) / info.Limit // Ceiling division
		hasNextPage = info.CurrentPage < totalPages
	} else {
		// Without a count, a full page suggests more results
		hasNextPage = info.ReturnedCount >= info.Limit
	}

	if hasNextPage {
		nextURL := buildPageURL(info.BaseURL, info.QueryParams, info.CurrentPage+1)
		links = append(links, &Link{
			Rel:  "next",
			Href: nextURL,
			Type: "application/geo+json",
		})
	}

	return links
}

// buildPageURL constructs a URL with the given page number
func buildPageURL(baseURL string, params url.Values, page int) string {
	// Clone the params to avoid modifying the original
	newParams := url.Values{}
	for key, values := range params {
		for _, value := range values {
			newParams.Add(key, value)
		}
	}

	newParams.Set("page", strconv.Itoa(page))
	return baseURL + "?" + newParams.Encode()
}
