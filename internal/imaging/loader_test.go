package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createTestImage writes a solid color PNG into dir and returns its path.
func createTestImage(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	return path
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"banana.png", true},
		{"banana.jpg", true},
		{"banana.jpeg", true},
		{"BANANA.JPG", true},
		{"Banana.PnG", true},
		{"banana.gif", false},
		{"banana.txt", false},
		{"bananapng", false},
		{"png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSupported(tt.name); got != tt.want {
				t.Errorf("IsSupported(%q): got %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	createTestImage(t, dir, "b.png", 4, 4, color.White)
	createTestImage(t, dir, "a.JPG", 4, 4, color.White)
	createTestImage(t, dir, "c.jpeg", 4, 4, color.White)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A directory with an image-like name must be skipped.
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	createTestImage(t, filepath.Join(dir, "nested.png"), "deep.png", 4, 4, color.White)

	names, err := ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}

	want := []string{"a.JPG", "b.png", "c.jpeg"}
	if len(names) != len(want) {
		t.Fatalf("names: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d]: got %s, want %s", i, names[i], want[i])
		}
	}
}

func TestListImages_Empty(t *testing.T) {
	names, err := ListImages(t.TempDir())
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no images, got %v", names)
	}
}

func TestListImages_MissingDir(t *testing.T) {
	if _, err := ListImages(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("ListImages should fail for a missing directory")
	}
}

func TestLoadCanvas(t *testing.T) {
	path := createTestImage(t, t.TempDir(), "solid.png", 200, 100, color.RGBA{255, 200, 0, 255})

	canvas, err := LoadCanvas(path, 800, 600)
	if err != nil {
		t.Fatalf("LoadCanvas failed: %v", err)
	}

	bounds := canvas.Bounds()
	if bounds.Min != (image.Point{}) || bounds.Dx() != 800 || bounds.Dy() != 600 {
		t.Errorf("bounds: got %v, want (0,0)-(800,600)", bounds)
	}

	got := canvas.RGBAAt(400, 300)
	if got != (color.RGBA{255, 200, 0, 255}) {
		t.Errorf("center pixel: got %v, want {255 200 0 255}", got)
	}
}

func TestLoadCanvas_DropsAlpha(t *testing.T) {
	dir := t.TempDir()

	// Fully transparent pixels that still store yellow.
	src := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:i+4], []uint8{255, 255, 0, 0})
	}
	path := filepath.Join(dir, "transparent.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	f.Close()

	canvas, err := LoadCanvas(path, 16, 12)
	if err != nil {
		t.Fatalf("LoadCanvas failed: %v", err)
	}
	if got := canvas.RGBAAt(8, 6); got != (color.RGBA{255, 255, 0, 255}) {
		t.Errorf("pixel: got %v, want opaque yellow", got)
	}

	hue, err := MeanHue(canvas)
	if err != nil {
		t.Fatalf("MeanHue failed: %v", err)
	}
	if hue != 30 {
		t.Errorf("mean hue: got %g, want 30", hue)
	}

	out := filepath.Join(dir, "out.png")
	if err := Save(out, canvas, 95); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	saved, err := os.Open(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer saved.Close()
	decoded, err := png.Decode(saved)
	if err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if _, _, _, a := decoded.At(0, 0).RGBA(); a != 0xffff {
		t.Errorf("output alpha: got %#x, want opaque", a)
	}
}

func TestLoadCanvas_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadCanvas(path, 800, 600); err == nil {
		t.Error("LoadCanvas should fail for invalid image data")
	}
	if _, err := LoadCanvas(filepath.Join(dir, "absent.png"), 800, 600); err == nil {
		t.Error("LoadCanvas should fail for a missing file")
	}
}

func TestCloneCanvas(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.SetRGBA(1, 1, color.RGBA{1, 2, 3, 255})

	dst := CloneCanvas(src)
	dst.SetRGBA(1, 1, color.RGBA{9, 9, 9, 255})

	if src.RGBAAt(1, 1) != (color.RGBA{1, 2, 3, 255}) {
		t.Error("drawing on the clone modified the source")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	for _, name := range []string{"out.png", "out.jpg", "out.JPEG"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := Save(path, img, 95); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			canvas, err := LoadCanvas(path, 20, 10)
			if err != nil {
				t.Fatalf("reload failed: %v", err)
			}
			if canvas.Bounds().Dx() != 20 || canvas.Bounds().Dy() != 10 {
				t.Errorf("reloaded size: got %v", canvas.Bounds())
			}
		})
	}
}

func TestSave_UnsupportedFormat(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := Save(filepath.Join(t.TempDir(), "out.gif"), img, 95); err == nil {
		t.Error("Save should reject .gif")
	}
}

func TestCanvasCache_Load(t *testing.T) {
	cache := NewCanvasCache(80, 60)
	path := createTestImage(t, t.TempDir(), "a.png", 100, 100, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img1.Bounds().Dx() != 80 || img1.Bounds().Dy() != 60 {
		t.Errorf("unexpected dimensions: got %v, want 80x60", img1.Bounds())
	}

	img2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached canvas")
	}
}

func TestCanvasCache_Load_NonExistent(t *testing.T) {
	cache := NewCanvasCache(80, 60)
	if _, err := cache.Load("/nonexistent/path/to/image.png"); err == nil {
		t.Error("Load should fail for non-existent file")
	}
}

func TestCanvasCache_EvictAndClear(t *testing.T) {
	cache := NewCanvasCache(10, 10)
	dir := t.TempDir()
	a := createTestImage(t, dir, "a.png", 5, 5, color.White)
	b := createTestImage(t, dir, "b.png", 5, 5, color.Black)

	for _, p := range []string{a, b} {
		if _, err := cache.Load(p); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}

	cache.Evict(a)
	cache.Evict("/nonexistent/path")

	cache.mu.RLock()
	_, hasA := cache.canvases[a]
	_, hasB := cache.canvases[b]
	cache.mu.RUnlock()
	if hasA || !hasB {
		t.Errorf("after Evict: hasA=%v hasB=%v, want false true", hasA, hasB)
	}

	cache.Clear()
	cache.mu.RLock()
	count := len(cache.canvases)
	cache.mu.RUnlock()
	if count != 0 {
		t.Errorf("Clear did not empty cache: %d canvases remain", count)
	}
}

func TestCanvasCache_ConcurrentAccess(t *testing.T) {
	cache := NewCanvasCache(40, 30)
	path := createTestImage(t, t.TempDir(), "gray.png", 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}
