// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export runs one export: fetch the records a profile asks for,
// normalize them and write the rows to a TSV or XLSX file.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pdiddy/mp-export/internal/cache"
	"github.com/pdiddy/mp-export/internal/elements"
	"github.com/pdiddy/mp-export/internal/mpapi"
	"github.com/pdiddy/mp-export/internal/profile"
	"github.com/pdiddy/mp-export/internal/selector"
	"github.com/pdiddy/mp-export/pkg/types"
)

// Fetcher runs a query and returns the raw response body.
type Fetcher interface {
	QueryRaw(ctx context.Context, q mpapi.Query) ([]byte, error)
}

// Source decides where records come from: a saved response file, the
// cache, or the API (in that order).
type Source struct {
	Fetcher  Fetcher
	Cache    *cache.Store
	Endpoint string

	// InputFile, when set, is read instead of querying.
	InputFile string

	// Refresh skips cache reads but still stores the fresh response.
	Refresh bool
}

// Origin reports where Load found the records.
type Origin string

const (
	OriginFile  Origin = "file"
	OriginCache Origin = "cache"
	OriginAPI   Origin = "api"
)

// Load returns the records for q along with their origin and cache key.
func (s Source) Load(ctx context.Context, q mpapi.Query, w io.Writer) ([]types.Record, Origin, string, error) {
	if s.InputFile != "" {
		data, err := os.ReadFile(s.InputFile)
		if err != nil {
			return nil, "", "", fmt.Errorf("reading input file: %w", err)
		}
		recs, err := mpapi.DecodeResponse(bytes.NewReader(data))
		if err != nil {
			return nil, "", "", fmt.Errorf("%s: %w", s.InputFile, err)
		}
		fmt.Fprintf(w, "loaded %d records from %s\n", len(recs), s.InputFile)
		return recs, OriginFile, "", nil
	}

	criteria, properties, err := q.Encode()
	if err != nil {
		return nil, "", "", err
	}
	key := cache.Key(s.Endpoint, criteria, properties)

	if s.Cache != nil && !s.Refresh {
		entry, found, err := s.Cache.Get(ctx, key)
		if err != nil {
			return nil, "", "", err
		}
		if found {
			recs, err := mpapi.DecodeResponse(bytes.NewReader(entry.Body))
			if err != nil {
				return nil, "", "", fmt.Errorf("cached response %s: %w", key[:12], err)
			}
			fmt.Fprintf(w, "using cached response from %s (%d records)\n",
				entry.FetchedAt.Local().Format(time.DateTime), len(recs))
			return recs, OriginCache, key, nil
		}
	}

	if s.Fetcher == nil {
		return nil, "", "", fmt.Errorf("no API client configured and no cached response for this query")
	}
	body, err := s.Fetcher.QueryRaw(ctx, q)
	if err != nil {
		return nil, "", "", err
	}
	recs, err := mpapi.DecodeResponse(bytes.NewReader(body))
	if err != nil {
		return nil, "", "", err
	}
	fmt.Fprintf(w, "fetched %d records\n", len(recs))

	if s.Cache != nil {
		err := s.Cache.Put(ctx, cache.Entry{
			Key: key, Endpoint: s.Endpoint, Criteria: criteria, Properties: properties,
			Body: body, Records: len(recs),
		})
		if err != nil {
			fmt.Fprintf(w, "warning: caching response failed: %v\n", err)
		}
	}
	return recs, OriginAPI, key, nil
}

// Options configures Run.
type Options struct {
	Profile    *profile.Profile
	Elements   *elements.Table
	Format     types.OutputFormat
	OutputPath string

	// Quiet suppresses the per-row progress lines.
	Quiet bool
}

// Summary holds the counts of a finished run.
type Summary struct {
	RunID      string
	Origin     Origin
	Fetched    int
	Written    int
	Invalid    int
	Duplicates int
}

// Run fetches, normalizes and writes. Normalization completes before the
// output file is created, so a malformed record leaves no partial file.
func Run(ctx context.Context, opts Options, src Source, w io.Writer) (Summary, error) {
	started := time.Now()
	p := opts.Profile
	if p == nil {
		return Summary{}, fmt.Errorf("no profile selected")
	}
	if opts.OutputPath == "" {
		return Summary{}, fmt.Errorf("no output path configured")
	}
	tbl := opts.Elements
	if tbl == nil {
		tbl = elements.Default()
	}

	cfg, err := p.SelectorConfig(tbl)
	if err != nil {
		return Summary{}, err
	}

	q := mpapi.Query{Criteria: p.Criteria, Properties: p.Properties()}
	recs, origin, key, err := src.Load(ctx, q, w)
	if err != nil {
		return Summary{}, err
	}

	res, err := selector.Normalize(cfg, recs)
	if err != nil {
		return Summary{}, err
	}

	sink, err := Create(opts.Format, opts.OutputPath, p.Name, p.TrailingTab())
	if err != nil {
		return Summary{}, err
	}
	if err := sink.WriteRow(cfg.Header()); err != nil {
		sink.Close()
		return Summary{}, fmt.Errorf("writing header: %w", err)
	}
	for i, row := range res.Rows {
		if err := sink.WriteRow(row.Cells); err != nil {
			sink.Close()
			return Summary{}, fmt.Errorf("writing %s: %w", row.Key, err)
		}
		if !opts.Quiet {
			fmt.Fprintf(w, "Finished writing %s (%d/%d)\n", row.Key.Formula, i+1, len(recs))
		}
	}
	if err := sink.Close(); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Origin:     origin,
		Fetched:    len(recs),
		Written:    len(res.Rows),
		Invalid:    res.Invalid,
		Duplicates: res.Duplicates,
	}

	if src.Cache != nil {
		id, err := src.Cache.RecordRun(ctx, cache.Run{
			Profile: p.Name, Output: opts.OutputPath, Format: formatOrDefault(opts.Format), CacheKey: key,
			Fetched: summary.Fetched, Written: summary.Written, Invalid: summary.Invalid, Duplicates: summary.Duplicates,
			StartedAt: started, FinishedAt: time.Now(),
		})
		if err != nil {
			fmt.Fprintf(w, "warning: %v\n", err)
		}
		summary.RunID = id
	}

	printSummary(w, summary, opts.OutputPath)
	return summary, nil
}

func printSummary(w io.Writer, s Summary, path string) {
	pr := message.NewPrinter(language.English)
	pr.Fprintf(w, "\nwrote %d rows to %s (records: %d, invalid: %d, duplicates: %d)\n",
		s.Written, path, s.Fetched, s.Invalid, s.Duplicates)
}

func formatOrDefault(f types.OutputFormat) types.OutputFormat {
	if f == "" {
		return types.OutputTSV
	}
	return f
}
