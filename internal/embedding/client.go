package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/nandhiniannika/online-voting/internal/constants"
	"github.com/nandhiniannika/online-voting/internal/imaging"
)

const defaultEmbeddingURL = "http://localhost:8000"

// Client computes face embeddings using the embedding server
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new embedding server client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// faceDetection represents a single detected face
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face embedding endpoint
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postImage posts JPEG data as a multipart form to the given endpoint.
func (c *Client) postImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")
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
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API error (status %d): %s", ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	return body, nil
}

// Detect sends img to the face endpoint. Images larger than the server limit
// are shrunk first and boxes are mapped back to img's coordinates.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]Face, error) {
	bounds := img.Bounds()
	sent := imaging.FitWithin(img, constants.MaxImageSize)
	scale := 1.0
	if sent.Bounds().Dx() != bounds.Dx() && sent.Bounds().Dx() > 0 {
		scale = float64(bounds.Dx()) / float64(sent.Bounds().Dx())
	}

	data, err := imaging.EncodeJPEG(sent)
	if err != nil {
		return nil, err
	}

	body, err := c.postImage(ctx, "/embed/face", data)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	faces := make([]Face, 0, len(faceResp.Faces))
	for _, det := range faceResp.Faces {
		if len(det.Embedding) == 0 {
			return nil, errors.New("empty embedding returned")
		}
		faces = append(faces, Face{
			BBox:      bboxToRect(det.BBox, scale).Add(bounds.Min),
			Embedding: det.Embedding,
			Score:     det.DetScore,
		})
	}
	return faces, nil
}

func bboxToRect(bbox []float64, scale float64) image.Rectangle {
	if len(bbox) != 4 {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Round(bbox[0]*scale)),
		int(math.Round(bbox[1]*scale)),
		int(math.Round(bbox[2]*scale)),
		int(math.Round(bbox[3]*scale)),
	)
}
