/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package lists provides the content pools games draw from: the built-in
// word lists and any lists found in a directory on disk.
package lists

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Seednode/partyseed/games"
)

//go:embed words/*.txt
var builtin embed.FS

var imageExtensions = []string{".avif", ".gif", ".jpeg", ".jpg", ".png", ".svg", ".webp"}

// List is one named content pool.
type List struct {
	Variant string
	Mode    games.Mode
	Items   []string
}

// Saver is the part of store.Store that lists are written to.
type Saver interface {
	PutPool(ctx context.Context, variant string, mode games.Mode, items []string) error
}

// Parse reads one item per line. Blank lines and lines starting with # are
// skipped, and repeated items are kept only once.
func Parse(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}

		seen[line] = true
		out = append(out, line)
	}

	return out, scanner.Err()
}

func variantName(file string) string {
	return strings.TrimSuffix(path.Base(file), path.Ext(file))
}

// Builtin returns the word lists compiled into the binary.
func Builtin() ([]List, error) {
	files, err := fs.Glob(builtin, "words/*.txt")
	if err != nil {
		return nil, err
	}

	var out []List
	for _, f := range files {
		file, err := builtin.Open(f)
		if err != nil {
			return nil, err
		}

		items, err := Parse(file)
		_ = file.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}

		out = append(out, List{Variant: variantName(f), Mode: games.ModeWord, Items: items})
	}

	return out, nil
}

// Import reads dir: each *.txt file is a word list named after the file, and
// each subdirectory holding images is an image list whose items are
// "<subdirectory>/<file>" references.
func Import(dir string) ([]List, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []List
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())

		switch {
		case e.IsDir():
			items, err := imageRefs(full, e.Name())
			if err != nil {
				return nil, err
			}
			if len(items) > 0 {
				out = append(out, List{Variant: e.Name(), Mode: games.ModeImage, Items: items})
			}

		case strings.EqualFold(filepath.Ext(e.Name()), ".txt"):
			file, err := os.Open(full)
			if err != nil {
				return nil, err
			}

			items, err := Parse(file)
			_ = file.Close()
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", full, err)
			}

			out = append(out, List{Variant: variantName(e.Name()), Mode: games.ModeWord, Items: items})
		}
	}

	return out, nil
}

func imageRefs(dir, variant string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		if slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			out = append(out, variant+"/"+e.Name())
		}
	}

	return out, nil
}

// Load writes the built-in lists, then any lists under dir (which may be
// empty), to st. Lists from dir replace built-in lists of the same name.
func Load(ctx context.Context, st Saver, dir string) ([]List, error) {
	all, err := Builtin()
	if err != nil {
		return nil, err
	}

	if dir != "" {
		extra, err := Import(dir)
		if err != nil {
			return nil, err
		}
		all = append(all, extra...)
	}

	for _, l := range all {
		if err := st.PutPool(ctx, l.Variant, l.Mode, l.Items); err != nil {
			return nil, fmt.Errorf("store list %s (%s): %w", l.Variant, l.Mode, err)
		}
	}

	return all, nil
}
