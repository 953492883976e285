// Package detector wraps the face detection/embedding server. The server is
// treated as a black box: it receives an image and answers with zero or more
// detected faces, each carrying a fixed-dimension embedding vector and a
// bounding box in pixel coordinates.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
)

const defaultDetectorURL = "http://localhost:8000"

// maxUploadEdge is the longest image edge sent to the detector. Larger
// training stills are downscaled client-side before upload.
const maxUploadEdge = 1600

var (
	// ErrNoFace is returned when the detector finds no face in an image.
	ErrNoFace = errors.New("no face detected")
	// ErrDecode is returned for unreadable or corrupt image input.
	ErrDecode = errors.New("image decode failed")
)

// Face is a single detected face on an image or frame.
type Face struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixel coordinates
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the detector server's response payload.
type faceResponse struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// Client talks to the face detection server.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates a detector client. dim is the embedding dimensionality
// the server is expected to produce; responses with a different dimension
// are rejected.
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{},
	}
}

// ExtractFromFile extracts one signature embedding from a still image on
// disk. If the photo contains several faces only the first one reported by
// the detector is used; the server orders faces by detection score, which is
// the closest approximation of best-face selection available here.
func (c *Client) ExtractFromFile(ctx context.Context, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading photo %s: %w", path, err)
	}

	// Validate locally before the round trip so corrupt uploads fail with
	// a decode error instead of an opaque server response.
	if err := validateImage(data); err != nil {
		return nil, err
	}

	resized, err := downscale(data, maxUploadEdge)
	if err != nil {
		return nil, err
	}

	faces, err := c.detect(ctx, resized)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoFace
	}

	face := faces[0]
	if len(face.Embedding) != c.dim {
		return nil, fmt.Errorf("detector returned %d-dim embedding, expected %d", len(face.Embedding), c.dim)
	}
	return face.Embedding, nil
}

// ExtractFromFrame detects every face on a live video frame. The frame is
// expected to be an encoded image (JPEG from the camera source). Order of
// returned faces carries no meaning across calls.
func (c *Client) ExtractFromFrame(ctx context.Context, frame []byte) ([]Face, error) {
	faces, err := c.detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	for _, f := range faces {
		if len(f.Embedding) != c.dim {
			return nil, fmt.Errorf("detector returned %d-dim embedding, expected %d", len(f.Embedding), c.dim)
		}
	}
	return faces, nil
}

// detect posts the image to the detector and parses the face list.
func (c *Client) detect(ctx context.Context, imageData []byte) ([]Face, error) {
	body, err := c.postMultipartImage(ctx, "/faces/detect", imageData)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse detector response: %w", err)
	}
	return resp.Faces, nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// header based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
