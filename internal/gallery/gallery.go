// Package gallery resolves source images into ordered, immutable references
// and partitions them into fixed-size stitching groups.
package gallery

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/MeKo-Tech/longimg/internal/utils"
)

// Ref is a resolved handle to a source image. It is immutable once
// resolved; the stitching engine never mutates or persists it.
type Ref struct {
	Path      string
	SizeBytes int64
	ModTime   time.Time
	Width     int
	Height    int
}

// Resolve stats a file and caches its pixel dimensions without decoding the
// full raster. Dimensions stay zero when the header cannot be parsed; the
// engine reports such members as decode failures later.
func Resolve(path string) (Ref, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Ref{}, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if fi.IsDir() {
		return Ref{}, fmt.Errorf("%s is a directory, not an image", path)
	}

	ref := Ref{
		Path:      path,
		SizeBytes: fi.Size(),
		ModTime:   fi.ModTime(),
	}

	if f, err := os.Open(path); err == nil { //nolint:gosec // G304: user-provided image path
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			ref.Width = cfg.Width
			ref.Height = cfg.Height
		}
		_ = f.Close()
	}

	return ref, nil
}

// Discover lists the supported images directly inside dir, sorted by file
// name. Subdirectories are not descended into.
func Discover(dir string) ([]Ref, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	var refs []Ref
	for _, e := range entries {
		if e.IsDir() || !utils.IsSupportedImage(e.Name()) {
			continue
		}
		ref, err := Resolve(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	Sort(refs, ByName)
	return refs, nil
}

// SortKey selects the ordering of references within a set.
type SortKey string

const (
	ByName SortKey = "name"
	BySize SortKey = "size"
	ByTime SortKey = "time"
)

// ValidSortKey reports whether key names a known ordering.
func ValidSortKey(key string) bool {
	switch SortKey(key) {
	case ByName, BySize, ByTime:
		return true
	}
	return false
}

// Sort orders refs in place by the given key. Unknown keys sort by name.
func Sort(refs []Ref, key SortKey) {
	sort.SliceStable(refs, func(i, j int) bool {
		switch key {
		case BySize:
			return refs[i].SizeBytes < refs[j].SizeBytes
		case ByTime:
			return refs[i].ModTime.Before(refs[j].ModTime)
		default:
			return filepath.Base(refs[i].Path) < filepath.Base(refs[j].Path)
		}
	})
}

// Chunk partitions refs into consecutive groups of at most size members,
// preserving order. A non-positive size yields a single group.
func Chunk(refs []Ref, size int) [][]Ref {
	if len(refs) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(refs)
	}

	groups := make([][]Ref, 0, (len(refs)+size-1)/size)
	for start := 0; start < len(refs); start += size {
		end := start + size
		if end > len(refs) {
			end = len(refs)
		}
		groups = append(groups, refs[start:end])
	}
	return groups
}
