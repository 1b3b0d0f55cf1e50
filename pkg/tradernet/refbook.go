package tradernet

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/iter"

	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/pkg/signing"
)

// RefbookAll selects every published refbook.
const RefbookAll = "all"

var (
	refbookDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}/`)
	refbookNamePattern = regexp.MustCompile(`([A-Za-z0-9_]+)\.json\.zip`)
)

// Refbook downloads the latest reference data file by name. An empty name or
// "all" concatenates every file in name order.
func (c *Client) Refbook(ctx context.Context, name string) ([]map[string]any, error) {
	date, err := c.latestRefbook(ctx)
	if err != nil {
		return nil, err
	}
	if name != "" && name != RefbookAll {
		return c.refbookNamed(ctx, date, name)
	}

	names, err := c.refbookNames(ctx, date)
	if err != nil {
		return nil, err
	}
	mapper := iter.Mapper[string, []map[string]any]{MaxGoroutines: c.parallelism}
	parts, err := mapper.MapErr(names, func(n *string) ([]map[string]any, error) {
		return c.refbookNamed(ctx, date, *n)
	})
	if err != nil {
		return nil, fmt.Errorf("refbook %s: %w", date, err)
	}
	var out []map[string]any
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}

// GetAll returns refbook records whose fields equal every filter value.
// Unless showExpired is set only tradable records (istrade=1) are kept. A
// string mkt_short_code filter narrows the download to that refbook.
func (c *Client) GetAll(ctx context.Context, filters map[string]any, showExpired bool) ([]map[string]any, error) {
	want := make(map[string]string, len(filters)+1)
	for k, v := range filters {
		enc, err := signing.Stringify(v)
		if err != nil {
			return nil, err
		}
		want[k] = string(enc)
	}
	if !showExpired {
		want["istrade"] = "1"
	}
	name := ""
	if code, ok := filters["mkt_short_code"].(string); ok {
		name = code
	}

	records, err := c.Refbook(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		if matches(rec, want) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func matches(rec map[string]any, want map[string]string) bool {
	for field, expected := range want {
		v, ok := rec[field]
		if !ok {
			return false
		}
		enc, err := signing.Stringify(v)
		if err != nil || string(enc) != expected {
			return false
		}
	}
	return true
}

func (c *Client) latestRefbook(ctx context.Context) (string, error) {
	resp, err := c.core.Get(ctx, "/refbooks", nil)
	if err != nil {
		return "", err
	}
	return latestRefbookDate(string(resp.Body))
}

func (c *Client) refbookNames(ctx context.Context, date string) ([]string, error) {
	resp, err := c.core.Get(ctx, "/refbooks/"+date, nil)
	if err != nil {
		return nil, err
	}
	return refbookNames(string(resp.Body)), nil
}

func (c *Client) refbookNamed(ctx context.Context, date, name string) ([]map[string]any, error) {
	resp, err := c.core.Get(ctx, "/refbooks/"+date+"/"+name+".json.zip", nil)
	if err != nil {
		return nil, err
	}
	return parseRefbookArchive(resp.Body)
}

func latestRefbookDate(listing string) (string, error) {
	found := refbookDatePattern.FindAllString(listing, -1)
	if len(found) == 0 {
		return "", errs.Invalid("tradernet.refbook", "No refbook dates found")
	}
	for i := range found {
		found[i] = strings.TrimSuffix(found[i], "/")
	}
	slices.Sort(found)
	return found[len(found)-1], nil
}

func refbookNames(listing string) []string {
	var names []string
	for _, m := range refbookNamePattern.FindAllStringSubmatch(listing, -1) {
		names = append(names, m[1])
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func parseRefbookArchive(content []byte) ([]map[string]any, error) {
	const op = "tradernet.refbook"
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errs.New(op, errs.CodeInvalid, errs.WithMessage("invalid archive"), errs.WithCause(err))
	}
	if len(zr.File) != 1 {
		return nil, errs.Invalid(op, "More than one file in the archive")
	}
	f, err := zr.File[0].Open()
	if err != nil {
		return nil, errs.New(op, errs.CodeInvalid, errs.WithMessage("open archive entry"), errs.WithCause(err))
	}
	defer func() {
		_ = f.Close()
	}()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errs.New(op, errs.CodeInvalid, errs.WithMessage("read archive entry"), errs.WithCause(err))
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, errs.New(op, errs.CodeSerialization,
			errs.WithMessage("refbook is not a list of objects"), errs.WithCause(err))
	}
	return records, nil
}
