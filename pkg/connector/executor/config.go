package executor

import (
	"context"
	"fmt"
)

// Mode selects the fetch strategy of a report
type Mode string

const (
	// ModeOffset pages with limit/offset request fields
	ModeOffset Mode = "offsetPagination"
	// ModeCursor pages with an opaque cursor taken from pageInfo.endCursor
	ModeCursor Mode = "cursorPagination"
	// ModeMultiFetch fetches a list and then one detail object per item
	ModeMultiFetch Mode = "multiFetch"
)

// DefaultLimit is the page size used when a report does not set one
const DefaultLimit = 100

// DefaultIDField names the list item field passed to detail requests
const DefaultIDField = "id"

// Page describes one fetched page to HasMore and Transform callbacks
type Page struct {
	// Items are the raw items or edges extracted from the response
	Items []interface{}
	// Total is the value at TotalPath; valid only when HasTotal is set
	Total    int
	HasTotal bool
	Offset   int
	Limit    int
	// Cursor is the cursor the page was requested with; empty on the first page
	Cursor string
	// Page is the zero-based page counter
	Page int
	// TotalSeen counts raw items across all pages so far, this one included
	TotalSeen int
	// Body is the whole parsed response
	Body interface{}
}

// HasMoreFunc decides whether another offset page should be requested
type HasMoreFunc func(Page) bool

// TransformFunc reshapes extracted items into rows. When it fails or panics
// the raw items are emitted instead.
type TransformFunc func(items []interface{}, page Page) ([]interface{}, error)

// CustomFunc replaces mode dispatch for reports that need bespoke logic
type CustomFunc func(ctx context.Context, run *Run) error

// OffsetConfig configures offset pagination
type OffsetConfig struct {
	Limit        int
	BuildRequest func(offset, limit, page int) interface{}
	ItemsPath    string
	TotalPath    string
	HasMore      HasMoreFunc
	Transform    TransformFunc
}

// CursorConfig configures cursor pagination
type CursorConfig struct {
	// BuildRequest receives an empty cursor for the first page
	BuildRequest func(cursor string, page int) interface{}
	EdgesPath    string
	PageInfoPath string
	Transform    TransformFunc
}

// MultiFetchConfig configures list+detail fetching
type MultiFetchConfig struct {
	BuildListRequest   func() interface{}
	ListPath           string
	BuildDetailRequest func(item map[string]interface{}) interface{}
	DetailPath         string
	IDField            string
	// DetailEndpoint overrides the report endpoint for detail requests
	DetailEndpoint string
}

// ReportConfig is the static definition of one report
type ReportConfig struct {
	Name        string
	Description string
	Mode        Mode
	// Endpoint is appended to the account API base URL
	Endpoint string

	Offset     *OffsetConfig
	Cursor     *CursorConfig
	MultiFetch *MultiFetchConfig

	// Execute, when set, runs instead of the mode strategy
	Execute CustomFunc
}

// Validate checks that the section matching Mode is present. Reports with
// an Execute override and unknown modes pass, the latter failing at run time.
func (rc *ReportConfig) Validate() error {
	if rc.Name == "" {
		return fmt.Errorf("report name is required")
	}
	if rc.Execute != nil {
		return nil
	}
	if rc.Endpoint == "" {
		return fmt.Errorf("report %s: endpoint is required", rc.Name)
	}

	switch rc.Mode {
	case ModeOffset:
		if rc.Offset == nil || rc.Offset.BuildRequest == nil || rc.Offset.ItemsPath == "" {
			return fmt.Errorf("report %s: offset section needs BuildRequest and ItemsPath", rc.Name)
		}
	case ModeCursor:
		if rc.Cursor == nil || rc.Cursor.BuildRequest == nil || rc.Cursor.EdgesPath == "" {
			return fmt.Errorf("report %s: cursor section needs BuildRequest and EdgesPath", rc.Name)
		}
	case ModeMultiFetch:
		mf := rc.MultiFetch
		if mf == nil || mf.BuildListRequest == nil || mf.BuildDetailRequest == nil || mf.ListPath == "" || mf.DetailPath == "" {
			return fmt.Errorf("report %s: multiFetch section needs list and detail builders and paths", rc.Name)
		}
	}
	return nil
}

// DefaultHasMore continues while fewer items than the reported total have
// been seen, or, without a total, while pages come back full
func DefaultHasMore(p Page) bool {
	if p.HasTotal {
		return p.TotalSeen < p.Total
	}
	return len(p.Items) == p.Limit
}
