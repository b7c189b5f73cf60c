package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// LoadAll parses every file argument concurrently and merges the results in
// argument order. Arguments use the "format:path" syntax of ParseFileArg; files
// without a prefix are matched by extension, falling back to defaultFormat.
// Loaded records are validated and receive ids when they have none.
func LoadAll(ctx context.Context, args []string, defaultFormat string) (Dataset, error) {
	type job struct {
		src  Source
		path string
	}
	jobs := make([]job, len(args))
	for i, arg := range args {
		format, path := ResolveFileArg(arg, defaultFormat)
		src, err := GetSource(format)
		if err != nil {
			return Dataset{}, fmt.Errorf("%s: %w", arg, err)
		}
		jobs[i] = job{src: src, path: path}
	}

	parsed := make([]Dataset, len(args))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, j := range jobs {
		src, path := j.src, j.path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ds, err := src.Parse(path)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}
			parsed[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Dataset{}, err
	}

	var all Dataset
	for _, ds := range parsed {
		all.Merge(ds)
	}
	if err := all.Validate(); err != nil {
		return Dataset{}, err
	}
	all.AssignIDs()
	return all, nil
}
