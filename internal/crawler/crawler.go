package crawler

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Crawler scans directories for Natvis documents.
type Crawler struct {
	ignored []string
	ext     string
}

// NewCrawler creates a new crawler instance.
func NewCrawler() *Crawler {
	return &Crawler{
		ignored: []string{".git", "vendor", "node_modules", ".vs"},
		ext:     ".natvis",
	}
}

// Scan walks every root and calls onFile for each Natvis document found.
// A root naming a file is reported as is, whatever its extension.
func (c *Crawler) Scan(roots []string, onFile func(path string) error) error {
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			if err := onFile(root); err != nil {
				return err
			}
			continue
		}
		if err := c.walk(root, onFile); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) walk(root string, onFile func(string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != root && c.isIgnored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(d.Name()), c.ext) {
			return nil
		}
		return onFile(path)
	})
}

func (c *Crawler) isIgnored(name string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}

// Files returns the Natvis documents under roots in walk order.
func (c *Crawler) Files(roots ...string) ([]string, error) {
	var files []string
	err := c.Scan(roots, func(path string) error {
		files = append(files, path)
		return nil
	})
	return files, err
}

// Dirs returns every directory Scan would descend into.
func (c *Crawler) Dirs(roots ...string) ([]string, error) {
	var dirs []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			dirs = append(dirs, filepath.Dir(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && c.isIgnored(d.Name()) {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return dirs, nil
}
