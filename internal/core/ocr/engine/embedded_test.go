//go:build cgo

package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
)

type fakeClient struct {
	texts    map[string]string
	confs    map[string][]float64
	textErr  error
	boxesErr error

	lang    []string
	psm     gosseract.PageSegMode
	prefix  string
	current string
	closed  int
}

func (c *fakeClient) SetLanguage(langs ...string) error {
	c.lang = langs
	return nil
}
func (c *fakeClient) SetPageSegMode(m gosseract.PageSegMode) error {
	c.psm = m
	return nil
}
func (c *fakeClient) SetTessdataPrefix(p string) error {
	c.prefix = p
	return nil
}
func (c *fakeClient) SetImageFromBytes(data []byte) error {
	c.current = string(data)
	return nil
}
func (c *fakeClient) Text() (string, error) {
	if c.textErr != nil {
		return "", c.textErr
	}
	return c.texts[c.current], nil
}
func (c *fakeClient) GetBoundingBoxes(gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error) {
	if c.boxesErr != nil {
		return nil, c.boxesErr
	}
	var out []gosseract.BoundingBox
	for _, conf := range c.confs[c.current] {
		out = append(out, gosseract.BoundingBox{Word: "w", Confidence: conf})
	}
	return out, nil
}
func (c *fakeClient) Close() error {
	c.closed++
	return nil
}

func newTestBackend(t *testing.T, client *fakeClient) (*Backend, *int) {
	t.Helper()
	b := NewBackend(common.OCRConfig{EnableEmbedded: true, Lang: "eng", PSM: "11", TessdataDir: "/opt/tessdata"}, nil)
	created := 0
	b.newClient = func() engineClient {
		created++
		return client
	}
	return b, &created
}

func images(names ...string) []entity.Image {
	out := make([]entity.Image, len(names))
	for i, n := range names {
		out[i] = entity.Image{Name: n, Data: []byte(n)}
	}
	return out
}

func TestRecognizeOneClientPerBatch(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		texts: map[string]string{"a.jpg": "GM 12345678", "b.jpg": "MADE IN USA"},
		confs: map[string][]float64{"a.jpg": {90, 81}, "b.jpg": {88}},
	}
	b, created := newTestBackend(t, client)

	rec, err := b.Recognize(context.Background(), images("a.jpg", "b.jpg"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if *created != 1 || client.closed != 1 {
		t.Errorf("clients created=%d closed=%d, want 1 and 1", *created, client.closed)
	}
	if len(rec.Texts) != 2 || rec.Texts[0] != "GM 12345678" || rec.Texts[1] != "MADE IN USA" {
		t.Errorf("texts = %q", rec.Texts)
	}
	// (90+81+88)/3 = 86.33
	if !rec.HasConfidence || rec.Confidence != 86 {
		t.Errorf("confidence = %d (has=%v), want 86", rec.Confidence, rec.HasConfidence)
	}
	if client.psm != gosseract.PageSegMode(11) || client.prefix != "/opt/tessdata" || len(client.lang) != 1 || client.lang[0] != "eng" {
		t.Errorf("engine settings psm=%d prefix=%q lang=%q", client.psm, client.prefix, client.lang)
	}
}

func TestRecognizeWithoutWordBoxes(t *testing.T) {
	t.Parallel()

	client := &fakeClient{texts: map[string]string{"a.jpg": "text"}, boxesErr: errors.New("no iterator")}
	b, _ := newTestBackend(t, client)

	rec, err := b.Recognize(context.Background(), images("a.jpg"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if rec.HasConfidence {
		t.Errorf("confidence reported without word boxes: %d", rec.Confidence)
	}
}

func TestRecognizeFailureClosesClient(t *testing.T) {
	t.Parallel()

	client := &fakeClient{textErr: errors.New("engine crashed")}
	b, _ := newTestBackend(t, client)

	_, err := b.Recognize(context.Background(), images("a.jpg"))
	if !errors.Is(err, common.ErrBackendCall) {
		t.Fatalf("err = %v, want ErrBackendCall", err)
	}
	if client.closed != 1 {
		t.Errorf("closed = %d, want 1", client.closed)
	}

	cancelled := &fakeClient{}
	b, _ = newTestBackend(t, cancelled)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Recognize(ctx, images("a.jpg")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if cancelled.closed != 1 {
		t.Errorf("closed after cancel = %d, want 1", cancelled.closed)
	}
}

func TestAvailableFollowsConfig(t *testing.T) {
	t.Parallel()

	if NewBackend(common.OCRConfig{}, nil).Available(context.Background()) {
		t.Error("disabled backend reported available")
	}
	b := NewBackend(common.OCRConfig{EnableEmbedded: true, PSM: "bogus"}, nil)
	if !b.Available(context.Background()) || b.psm != gosseract.PSM_SINGLE_BLOCK {
		t.Errorf("available=%v psm=%d", b.Available(context.Background()), b.psm)
	}
}
