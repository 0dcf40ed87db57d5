package annot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Point is a single annotated head location in image pixel space.
type Point struct {
	X float64
	Y float64
}

// MissingAnnotationError reports an absent or unreadable ground-truth file.
// The pipeline skips the affected image and keeps the run alive.
type MissingAnnotationError struct {
	Path string
	Err  error
}

func (e *MissingAnnotationError) Error() string {
	return fmt.Sprintf("annotation %s: %v", e.Path, e.Err)
}

func (e *MissingAnnotationError) Unwrap() error { return e.Err }

// GroundTruthPath derives the annotation path from an image path the same way
// the dataset lays out its folders: the images directory becomes ground-truth,
// the IMG stem gains a GT_ prefix, and the extension is swapped.
func GroundTruthPath(imagePath, ext string) string {
	dir := filepath.Dir(imagePath)
	parent := filepath.Dir(dir)
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.HasPrefix(stem, "IMG") {
		stem = "GT_" + stem
	}
	return filepath.Join(parent, "ground-truth", stem+ext)
}

// Load reads the point annotations paired with the given image. It resolves
// the ground-truth file by extension, preferring CSV and falling back to JSON.
func Load(imagePath string) ([]Point, error) {
	for _, ext := range []string{".csv", ".json"} {
		path := GroundTruthPath(imagePath, ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		points, err := readFile(path)
		if err != nil {
			return nil, &MissingAnnotationError{Path: path, Err: err}
		}
		return points, nil
	}
	return nil, &MissingAnnotationError{
		Path: GroundTruthPath(imagePath, ".csv"),
		Err:  os.ErrNotExist,
	}
}

func readFile(path string) ([]Point, error) {
	switch filepath.Ext(path) {
	case ".csv":
		return readCSV(path)
	case ".json":
		return readJSON(path)
	}
	return nil, fmt.Errorf("unsupported annotation format %q", filepath.Ext(path))
}

// readCSV parses one "x,y" row per point, no header.
func readCSV(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(records))
	for i, rec := range records {
		x, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points, nil
}

// readJSON parses a [[x, y], ...] array.
func readJSON(path string) ([]Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw [][2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	points := make([]Point, len(raw))
	for i, p := range raw {
		points[i] = Point{X: p[0], Y: p[1]}
	}
	return points, nil
}
