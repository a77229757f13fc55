package executor

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-domo/pkg/connector/core"
	"github.com/ajitpratap0/nebula-domo/pkg/errors"
	"github.com/ajitpratap0/nebula-domo/pkg/metrics"
	"github.com/ajitpratap0/nebula-domo/pkg/observability"
	"github.com/ajitpratap0/nebula-domo/pkg/rows"
)

// Run is the state of a single report execution. Custom reports receive it
// to post requests and emit rows the same way the built-in strategies do.
type Run struct {
	Report *ReportConfig
	Poster *Poster
	Logger *zap.Logger

	executor *Executor
	sink     core.Sink
	metrics  *metrics.Collector
	summary  *Summary
	span     *observability.Span
}

// PosterFor returns a poster for another endpoint of the same account
func (r *Run) PosterFor(endpoint string) *Poster {
	if endpoint == "" {
		return r.Poster
	}
	return r.executor.poster(endpoint)
}

// Emit flattens value into rows and hands them to the sink. A sink failure
// is returned as a fatal error.
func (r *Run) Emit(ctx context.Context, value interface{}) error {
	batch := rows.ToRows(rows.Flatten(value))
	if len(batch) == 0 {
		return nil
	}

	if err := r.sink.Ingest(ctx, batch); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "Sink ingestion failed: "+err.Error()).
			WithStatus(http.StatusInternalServerError)
	}

	r.summary.Rows += len(batch)
	r.metrics.RowsEmitted(r.Report.Name, len(batch))
	return nil
}

func (r *Run) pageFetched() {
	r.summary.Pages++
	r.metrics.PageFetched(r.Report.Name, string(r.Report.Mode))
}

// itemFailed records a non-fatal multi-fetch failure. Items without an id
// count as skipped, everything else as failed.
func (r *Run) itemFailed(reason string, err *errors.Error) {
	r.Logger.Warn(err.Message,
		zap.String("reason", reason),
		zap.String("error_type", string(err.Type)),
		zap.Any("details", err.Details),
		zap.Error(err))

	if reason == "missing_id" {
		r.summary.Skipped++
	} else {
		r.summary.Failed++
	}
	r.metrics.ItemFailed(r.Report.Name, reason)
	if r.span != nil {
		r.span.AddEvent("item.failed", attribute.String("reason", reason))
	}
}

func (r *Run) checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "Run cancelled: "+err.Error())
	}
	return nil
}

// transform applies fn and falls back to the raw items on error or panic
func (r *Run) transform(fn TransformFunc, items []interface{}, page Page) (out []interface{}) {
	if fn == nil {
		return items
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Warn("transform panicked, emitting raw items",
				zap.Int("page", page.Page),
				zap.String("panic", fmt.Sprint(rec)))
			out = items
		}
	}()

	transformed, err := fn(items, page)
	if err != nil {
		r.Logger.Warn("transform failed, emitting raw items",
			zap.Int("page", page.Page),
			zap.Error(err))
		return items
	}
	return transformed
}

func (r *Run) offsetPagination(ctx context.Context) error {
	cfg := r.Report.Offset
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	hasMore := cfg.HasMore
	if hasMore == nil {
		hasMore = DefaultHasMore
	}

	offset, page, seen := 0, 0, 0
	for {
		if err := r.checkContext(ctx); err != nil {
			return err
		}

		res := r.Poster.Post(ctx, cfg.BuildRequest(offset, limit, page))
		if !res.OK() {
			r.Logger.Error("pagination request failed",
				zap.Int("offset", offset),
				zap.Int("status", res.Status),
				zap.String("error", res.Err.Message))
			return res.Err
		}
		r.pageFetched()

		items, ok := rows.Array(res.JSON, cfg.ItemsPath)
		if !ok || len(items) == 0 {
			r.Logger.Debug("no more items", zap.Int("offset", offset), zap.Int("page", page))
			return nil
		}
		seen += len(items)

		p := Page{
			Items:     items,
			Offset:    offset,
			Limit:     limit,
			Page:      page,
			TotalSeen: seen,
			Body:      res.JSON,
		}
		if cfg.TotalPath != "" {
			if raw, ok := rows.Lookup(res.JSON, cfg.TotalPath); ok {
				p.Total, p.HasTotal = rows.Int(raw)
			}
		}

		if err := r.Emit(ctx, r.transform(cfg.Transform, items, p)); err != nil {
			return err
		}

		if !hasMore(p) {
			r.Logger.Debug("pagination complete", zap.Int("pages", page+1), zap.Int("seen", seen))
			return nil
		}
		offset += limit
		page++
	}
}

func (r *Run) cursorPagination(ctx context.Context) error {
	cfg := r.Report.Cursor
	cursor, page, seen := "", 0, 0

	for {
		if err := r.checkContext(ctx); err != nil {
			return err
		}

		res := r.Poster.Post(ctx, cfg.BuildRequest(cursor, page))
		if !res.OK() {
			r.Logger.Error("cursor pagination request failed",
				zap.Int("page", page),
				zap.Int("status", res.Status),
				zap.String("error", res.Err.Message))
			return res.Err
		}
		r.pageFetched()

		edges, ok := rows.Array(res.JSON, cfg.EdgesPath)
		if !ok || len(edges) == 0 {
			r.Logger.Debug("no more edges", zap.Int("page", page))
			return nil
		}
		seen += len(edges)

		p := Page{Items: edges, Cursor: cursor, Page: page, TotalSeen: seen, Body: res.JSON}
		if err := r.Emit(ctx, r.transform(cfg.Transform, edges, p)); err != nil {
			return err
		}

		info, _ := rows.Object(res.JSON, cfg.PageInfoPath)
		if !rows.Truthy(info["hasNextPage"]) {
			return nil
		}
		next, ok := rows.String(info["endCursor"])
		if !ok {
			r.Logger.Warn("hasNextPage set without endCursor, stopping", zap.Int("page", page))
			return nil
		}
		// Extra stop condition; the plain hasNextPage loop would request this page forever.
		if next == cursor {
			r.Logger.Warn("endCursor did not advance, stopping", zap.Int("page", page))
			return nil
		}
		cursor = next
		page++
	}
}

func (r *Run) multiFetch(ctx context.Context) error {
	cfg := r.Report.MultiFetch
	idField := cfg.IDField
	if idField == "" {
		idField = DefaultIDField
	}

	res := r.Poster.Post(ctx, cfg.BuildListRequest())
	if !res.OK() {
		r.Logger.Error("list request failed",
			zap.Int("status", res.Status),
			zap.String("error", res.Err.Message))
		return res.Err
	}
	r.pageFetched()

	list, ok := rows.Array(res.JSON, cfg.ListPath)
	if !ok || len(list) == 0 {
		r.Logger.Info("no items returned for list", zap.String("path", cfg.ListPath))
		return nil
	}

	detail := r.PosterFor(cfg.DetailEndpoint)
	for i, raw := range list {
		if err := r.checkContext(ctx); err != nil {
			return err
		}

		item, _ := raw.(map[string]interface{})
		if item == nil || !rows.Truthy(item[idField]) {
			r.itemFailed("missing_id", errors.New(errors.ErrorTypeItem, "skipping item without id").
				WithDetail("id_field", idField).
				WithDetail("index", i))
			continue
		}
		id := fmt.Sprint(item[idField])

		dres := detail.Post(ctx, cfg.BuildDetailRequest(item))
		if !dres.OK() {
			r.itemFailed("detail_request", errors.Wrap(dres.Err, errors.ErrorTypeItem, "detail fetch failed").
				WithDetail("id", id).
				WithStatus(dres.Status))
			continue
		}
		r.pageFetched()

		obj, ok := rows.Lookup(dres.JSON, cfg.DetailPath)
		if !ok || !rows.Truthy(obj) {
			r.itemFailed("missing_detail", errors.New(errors.ErrorTypeItem, "no detail object found").
				WithDetail("id", id).
				WithDetail("path", cfg.DetailPath))
			continue
		}

		if err := r.Emit(ctx, obj); err != nil {
			return err
		}
	}
	return nil
}
