package annot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGroundTruthPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ext  string
		want string
	}{
		{
			name: "Standard dataset layout",
			in:   filepath.Join("shtech_A", "train_data", "images", "IMG_12.jpg"),
			ext:  ".csv",
			want: filepath.Join("shtech_A", "train_data", "ground-truth", "GT_IMG_12.csv"),
		},
		{
			name: "Non IMG stem keeps its name",
			in:   filepath.Join("data", "images", "photo.jpg"),
			ext:  ".json",
			want: filepath.Join("data", "ground-truth", "photo.json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GroundTruthPath(tt.in, tt.ext); got != tt.want {
				t.Errorf("GroundTruthPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func writeDatasetFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "images", "IMG_3.jpg")
	writeDatasetFile(t, root, filepath.Join("ground-truth", "GT_IMG_3.csv"), "10.5,20\n30,40.25\n")

	points, err := Load(img)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(points))
	}
	if points[0] != (Point{X: 10.5, Y: 20}) || points[1] != (Point{X: 30, Y: 40.25}) {
		t.Errorf("Unexpected points: %v", points)
	}
}

func TestLoadJSONFallback(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "images", "IMG_4.jpg")
	writeDatasetFile(t, root, filepath.Join("ground-truth", "GT_IMG_4.json"), "[[1,2],[3,4]]")

	points, err := Load(img)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(points) != 2 || points[1] != (Point{X: 3, Y: 4}) {
		t.Errorf("Unexpected points: %v", points)
	}
}

func TestLoadMissing(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "images", "IMG_9.jpg")

	_, err := Load(img)
	if err == nil {
		t.Fatal("Expected error for missing annotation, got nil")
	}
	var missing *MissingAnnotationError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingAnnotationError, got %T", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("Expected wrapped os.ErrNotExist")
	}
}

func TestLoadMalformed(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "images", "IMG_5.jpg")
	writeDatasetFile(t, root, filepath.Join("ground-truth", "GT_IMG_5.csv"), "not,a number\n")

	_, err := Load(img)
	var missing *MissingAnnotationError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingAnnotationError for malformed file, got %v", err)
	}
}
