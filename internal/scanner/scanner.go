package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageExtensions are file extensions we serve as gallery images.
var ImageExtensions = []string{
	".png",
	".jpg",
	".jpeg",
	".webp",
	".bmp",
	".tiff",
}

// IsImage reports whether a filename carries a recognized image extension.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Entry is one discovered image, relative to the scanned root.
type Entry struct {
	RelPath string
	ModTime int64
	Size    int64
}

// Listing is the result of scanning one source folder.
type Listing struct {
	Images  []Entry  // sorted case-insensitively by RelPath
	Folders []string // relative subfolders that contained anything
}

// Scan walks root recursively and collects image files with their
// modification times. A missing root yields an empty listing, not an error;
// unreadable subtrees are skipped.
func Scan(root string) (Listing, error) {
	var out Listing
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, err
	}

	folders := map[string]struct{}{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !IsImage(info.Name()) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if dir := filepath.Dir(rel); dir != "." {
			folders[dir] = struct{}{}
		}
		out.Images = append(out.Images, Entry{
			RelPath: rel,
			ModTime: info.ModTime().Unix(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return out, err
	}

	sort.Slice(out.Images, func(i, j int) bool {
		return strings.ToLower(out.Images[i].RelPath) < strings.ToLower(out.Images[j].RelPath)
	})
	for f := range folders {
		out.Folders = append(out.Folders, f)
	}
	sort.Slice(out.Folders, func(i, j int) bool {
		return strings.ToLower(out.Folders[i]) < strings.ToLower(out.Folders[j])
	})
	return out, nil
}
