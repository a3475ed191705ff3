package safetensors

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"
)

// indexFile lists which shard holds each tensor of a split checkpoint.
const indexFile = "model.safetensors.index.json"

// Dir is the set of safetensors files that make up one model.
type Dir struct {
	files []*File
	index map[string]*File
}

// OpenDir opens every shard of the model in dir. With an index file only the
// listed shards are read, otherwise model.safetensors or, if that is missing,
// every *.safetensors file.
func OpenDir(dir string) (*Dir, error) {
	paths, err := shardPaths(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no safetensors files in %s", dir)
	}

	files := make([]*File, len(paths))
	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			f, err := Open(p)
			files[i] = f
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
		return nil, err
	}

	d := &Dir{files: files, index: make(map[string]*File)}
	for _, f := range files {
		for name := range f.tensors {
			if _, ok := d.index[name]; ok {
				d.Close()
				return nil, fmt.Errorf("tensor %s appears in more than one file", name)
			}
			d.index[name] = f
		}
	}
	return d, nil
}

func shardPaths(dir string) ([]string, error) {
	bts, err := os.ReadFile(filepath.Join(dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		single := filepath.Join(dir, "model.safetensors")
		if _, err := os.Stat(single); err == nil {
			return []string{single}, nil
		}
		return filepath.Glob(filepath.Join(dir, "*.safetensors"))
	} else if err != nil {
		return nil, err
	}

	var index struct {
		WeightMap map[string]string `json:"weight_map"`
	}
	if err := json.Unmarshal(bts, &index); err != nil {
		return nil, fmt.Errorf("%s: %w", indexFile, err)
	}

	shards := slices.Sorted(maps.Values(index.WeightMap))
	shards = slices.Compact(shards)
	paths := make([]string, len(shards))
	for i, s := range shards {
		paths[i] = filepath.Join(dir, s)
	}
	return paths, nil
}

// Names returns every tensor name across shards in sorted order.
func (d *Dir) Names() []string {
	return slices.Sorted(maps.Keys(d.index))
}

func (d *Dir) Floats(name string) ([]float32, []int, error) {
	f, ok := d.index[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f.Floats(name)
}

func (d *Dir) Close() error {
	var errs []error
	for _, f := range d.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}
