package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// testJPEG encodes a small solid-color JPEG for upload tests.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 64, B: 32, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func writeTestPhoto(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write test photo: %v", err)
	}
	return path
}

// fakeDetector serves canned face responses and records requests.
func fakeDetector(t *testing.T, faces []Face) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/faces/detect" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file part", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(faceResponse{
			FacesCount: len(faces),
			Faces:      faces,
			Model:      "test-model",
		})
	}))
}

func embeddingOf(dim int, fill float32) []float32 {
	e := make([]float32, dim)
	for i := range e {
		e[i] = fill
	}
	return e
}

func TestExtractFromFile_FirstFaceWins(t *testing.T) {
	server := fakeDetector(t, []Face{
		{FaceIndex: 0, Dim: 4, Embedding: []float32{1, 0, 0, 0}, BBox: []float64{10, 10, 50, 50}, DetScore: 0.99},
		{FaceIndex: 1, Dim: 4, Embedding: []float32{0, 1, 0, 0}, BBox: []float64{60, 10, 90, 50}, DetScore: 0.80},
	})
	defer server.Close()

	client := NewClient(server.URL, 4)
	path := writeTestPhoto(t, testJPEG(t, 64, 48))

	embedding, err := client.ExtractFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedding[0] != 1 || embedding[1] != 0 {
		t.Errorf("expected first face's embedding, got %v", embedding)
	}
}

func TestExtractFromFile_NoFace(t *testing.T) {
	server := fakeDetector(t, nil)
	defer server.Close()

	client := NewClient(server.URL, 4)
	path := writeTestPhoto(t, testJPEG(t, 64, 48))

	_, err := client.ExtractFromFile(context.Background(), path)
	if !errors.Is(err, ErrNoFace) {
		t.Errorf("expected ErrNoFace, got %v", err)
	}
}

func TestExtractFromFile_CorruptImage(t *testing.T) {
	server := fakeDetector(t, []Face{{Embedding: embeddingOf(4, 1)}})
	defer server.Close()

	client := NewClient(server.URL, 4)
	path := writeTestPhoto(t, []byte("definitely not an image"))

	_, err := client.ExtractFromFile(context.Background(), path)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestExtractFromFile_MissingFile(t *testing.T) {
	client := NewClient("http://localhost:1", 4)

	_, err := client.ExtractFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExtractFromFile_DimMismatch(t *testing.T) {
	server := fakeDetector(t, []Face{{FaceIndex: 0, Dim: 3, Embedding: []float32{1, 2, 3}}})
	defer server.Close()

	client := NewClient(server.URL, 4)
	path := writeTestPhoto(t, testJPEG(t, 64, 48))

	_, err := client.ExtractFromFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestExtractFromFrame_AllFaces(t *testing.T) {
	server := fakeDetector(t, []Face{
		{FaceIndex: 0, Dim: 4, Embedding: embeddingOf(4, 0.1), BBox: []float64{0, 0, 10, 10}},
		{FaceIndex: 1, Dim: 4, Embedding: embeddingOf(4, 0.2), BBox: []float64{20, 0, 30, 10}},
		{FaceIndex: 2, Dim: 4, Embedding: embeddingOf(4, 0.3), BBox: []float64{40, 0, 50, 10}},
	})
	defer server.Close()

	client := NewClient(server.URL, 4)

	faces, err := client.ExtractFromFrame(context.Background(), testJPEG(t, 64, 48))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 3 {
		t.Fatalf("expected 3 faces, got %d", len(faces))
	}
	if len(faces[1].BBox) != 4 {
		t.Errorf("expected bbox with 4 coordinates, got %v", faces[1].BBox)
	}
}

func TestExtractFromFrame_EmptyFrameIsNotError(t *testing.T) {
	server := fakeDetector(t, nil)
	defer server.Close()

	client := NewClient(server.URL, 4)

	faces, err := client.ExtractFromFrame(context.Background(), testJPEG(t, 64, 48))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("expected zero faces, got %d", len(faces))
	}
}

func TestExtractFromFile_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 4)
	path := writeTestPhoto(t, testJPEG(t, 64, 48))

	_, err := client.ExtractFromFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for server failure")
	}
}

func TestDownscale_LargeImage(t *testing.T) {
	data := testJPEG(t, 3200, 1600)

	out, err := downscale(data, 1600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode downscaled image: %v", err)
	}
	if img.Bounds().Dx() != 1600 {
		t.Errorf("expected width 1600, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 800 {
		t.Errorf("expected height 800, got %d", img.Bounds().Dy())
	}
}

func TestDownscale_SmallImageUnchanged(t *testing.T) {
	data := testJPEG(t, 640, 480)

	out, err := downscale(data, 1600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("expected small image to pass through unchanged")
	}
}

func TestDetectMIMEType(t *testing.T) {
	jpegData := testJPEG(t, 8, 8)
	if got := detectMIMEType(jpegData); got != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", got)
	}
	if got := detectMIMEType([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}); got != "image/png" {
		t.Errorf("expected image/png, got %s", got)
	}
	if got := detectMIMEType([]byte("short")); got != "application/octet-stream" {
		t.Errorf("expected octet-stream for short data, got %s", got)
	}
}
