// dataset.go - Paralleler Korpus aus Parquet-Dateien
//
// Enthält:
// - Open: Expandiert Globs, öffnet Dateien parallel, zählt Zeilen
// - Dataset.Rows: Liefert Zeilenpaare in gemischter Reihenfolge
// - Row: Quell- und Zieltext einer Zeile
//
// Die ersten beiden Blatt-Spalten jeder Datei sind Quelle und Ziel.

package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"github.com/lingoforge/qwen2mt/ml"
)

var (
	ErrNoFiles = errors.New("dataset: no files match")
	ErrColumns = errors.New("dataset: file needs at least two columns")
)

// Row is one source/target pair.
type Row struct {
	Source string
	Target string
}

// Options controls the read order.
type Options struct {
	// ChunkSize is the number of rows read and shuffled together.
	ChunkSize int
	// RNG drives the shuffle. Nil reads in file order.
	RNG *ml.RNG
}

type file struct {
	path string
	f    *os.File
	pq   *parquet.File
}

// Dataset is a set of open parquet files.
type Dataset struct {
	files   []*file
	opts    Options
	numRows int64
}

// Open expands globs and opens every matching file.
func Open(ctx context.Context, opts Options, globs ...string) (*Dataset, error) {
	var paths []string
	for _, g := range globs {
		matches, err := filepath.Glob(g)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", g, err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	paths = slices.Compact(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoFiles, globs)
	}

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1024
	}

	d := &Dataset{files: make([]*file, len(paths)), opts: opts}

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := openFile(path)
			if err != nil {
				return err
			}
			d.files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.Close()
		return nil, err
	}

	for _, f := range d.files {
		d.numRows += f.pq.NumRows()
	}
	slog.Debug("opened dataset", "files", len(d.files), "rows", d.numRows)
	return d, nil
}

func openFile(path string) (*file, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	pq, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if n := len(pq.Schema().Columns()); n < 2 {
		f.Close()
		return nil, fmt.Errorf("%w: %s has %d", ErrColumns, path, n)
	}

	return &file{path: path, f: f, pq: pq}, nil
}

// NumRows returns the total number of rows across all files.
func (d *Dataset) NumRows() int64 {
	return d.numRows
}

// Close closes every file.
func (d *Dataset) Close() error {
	var errs []error
	for _, f := range d.files {
		if f != nil {
			errs = append(errs, f.f.Close())
		}
	}
	return errors.Join(errs...)
}

type group struct {
	file *file
	rg   parquet.RowGroup
}

// Rows yields every row once. Row groups are visited in shuffled order and
// rows are shuffled within each chunk. The sequence stops at the first error,
// which is yielded with a zero Row.
func (d *Dataset) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		var groups []group
		for _, f := range d.files {
			for _, rg := range f.pq.RowGroups() {
				groups = append(groups, group{f, rg})
			}
		}
		if d.opts.RNG != nil {
			d.opts.RNG.Shuffle(len(groups), func(i, j int) {
				groups[i], groups[j] = groups[j], groups[i]
			})
		}

		chunk := make([]Row, 0, d.opts.ChunkSize)
		for _, g := range groups {
			rows := g.rg.Rows()
			for {
				if err := ctx.Err(); err != nil {
					rows.Close()
					yield(Row{}, err)
					return
				}

				var err error
				chunk, err = readChunk(rows, chunk[:0], d.opts.ChunkSize)
				if err != nil {
					rows.Close()
					yield(Row{}, fmt.Errorf("%s: %w", g.file.path, err))
					return
				}
				if len(chunk) == 0 {
					break
				}

				if d.opts.RNG != nil {
					d.opts.RNG.Shuffle(len(chunk), func(i, j int) {
						chunk[i], chunk[j] = chunk[j], chunk[i]
					})
				}
				for _, r := range chunk {
					if !yield(r, nil) {
						rows.Close()
						return
					}
				}
			}
			rows.Close()
		}
	}
}

// readChunk appends up to n rows to dst. It returns fewer rows only at the end of the group.
func readChunk(rows parquet.Rows, dst []Row, n int) ([]Row, error) {
	buf := make([]parquet.Row, min(n, 128))
	for len(dst) < n {
		k, err := rows.ReadRows(buf[:min(len(buf), n-len(dst))])
		for _, r := range buf[:k] {
			dst = append(dst, toRow(r))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dst, err
		}
		if k == 0 {
			break
		}
	}
	return dst, nil
}

// toRow takes the first value of leaf columns 0 and 1. Nulls become "".
func toRow(r parquet.Row) Row {
	var row Row
	var seen [2]bool
	for _, v := range r {
		c := v.Column()
		if c < 0 || c > 1 || seen[c] {
			continue
		}
		seen[c] = true
		if v.IsNull() {
			continue
		}
		s := v.String()
		if v.Kind() == parquet.ByteArray {
			s = string(v.ByteArray())
		}
		if c == 0 {
			row.Source = s
		} else {
			row.Target = s
		}
	}
	return row
}
