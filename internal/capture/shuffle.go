package capture

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
)

// RunDirs are the run subdirectories of a test scene: 1 and 2 hold the
// possible runs, 3 and 4 the impossible ones.
var RunDirs = []string{"1", "2", "3", "4"}

const tmpSuffix = "_tmp"

// Shuffle randomly permutes the run subdirectories of every scene found
// under root/<scenario>/<scene>. It returns the number of shuffled scenes. A
// missing root is not an error: the dataset was not generated.
func Shuffle(root string, rng *rand.Rand) (int, error) {
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return 0, nil
	}
	scenes, err := filepath.Glob(filepath.Join(root, "*", "*"))
	if err != nil {
		return 0, err
	}
	sort.Strings(scenes)

	n := 0
	for _, scene := range scenes {
		if fi, err := os.Stat(scene); err != nil || !fi.IsDir() {
			continue
		}
		if err := shuffleScene(scene, rng); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func shuffleScene(scene string, rng *rand.Rand) error {
	entries, err := os.ReadDir(scene)
	if err != nil {
		return err
	}
	var subdirs []string
	for _, e := range entries {
		subdirs = append(subdirs, e.Name())
	}
	sort.Strings(subdirs)
	if !reflect.DeepEqual(subdirs, RunDirs) {
		return fmt.Errorf("unexpected subdirectories in %s: %v", scene, subdirs)
	}

	shuffled := make([]string, len(subdirs))
	for i, s := range subdirs {
		shuffled[i] = s + tmpSuffix
	}
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	// two passes through temporary names, a direct swap would clobber
	for i := range subdirs {
		if err := os.Rename(filepath.Join(scene, subdirs[i]), filepath.Join(scene, shuffled[i])); err != nil {
			return err
		}
	}
	for _, s := range shuffled {
		final := strings.TrimSuffix(s, tmpSuffix)
		if err := os.Rename(filepath.Join(scene, s), filepath.Join(scene, final)); err != nil {
			return err
		}
	}
	return nil
}
