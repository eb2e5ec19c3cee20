package capture

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Duplicate is a pair of scenes generated with identical parameters.
type Duplicate struct {
	A, B string
}

var runDirSet = func() mapset.Set[string] {
	s := mapset.New[string]()
	for _, d := range RunDirs {
		s.Put(d)
	}
	return s
}()

// singleRunDirs hold one directory per scene, with no run level.
var singleRunDirs = func() mapset.Set[string] {
	s := mapset.New[string]()
	s.Put("train")
	s.Put("sandbox")
	return s
}()

// sceneDir maps the directory of a status file to its scene: the run
// directories of a test scene belong to their parent.
func sceneDir(dir string) string {
	parent := filepath.Dir(dir)
	if runDirSet.Has(filepath.Base(dir)) && !singleRunDirs.Has(filepath.Base(parent)) {
		return parent
	}
	return dir
}

// headerKey is the canonical encoding of a header, is_possible aside.
func headerKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var st struct {
		Header map[string]interface{} `json:"header"`
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	delete(st.Header, "is_possible")
	key, err := json.Marshal(st.Header)
	return string(key), err
}

// FindDuplicates compares the headers of every status file under root and
// returns the pairs of distinct scenes that share one, sorted.
func FindDuplicates(root string) ([]Duplicate, error) {
	scenesByKey := map[string][]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != StatusFile {
			return nil
		}
		key, err := headerKey(path)
		if err != nil {
			return err
		}
		scene := sceneDir(filepath.Dir(path))
		for _, s := range scenesByKey[key] {
			if s == scene {
				return nil
			}
		}
		scenesByKey[key] = append(scenesByKey[key], scene)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var dups []Duplicate
	for _, scenes := range scenesByKey {
		sort.Strings(scenes)
		for i := range scenes {
			for _, other := range scenes[i+1:] {
				dups = append(dups, Duplicate{A: scenes[i], B: other})
			}
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].A != dups[j].A {
			return dups[i].A < dups[j].A
		}
		return dups[i].B < dups[j].B
	})
	return dups, nil
}
