package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/joseph-ayodele/partlister/internal/common"
)

// fakeTesseract imitates the tesseract CLI: it writes <outbase>.txt (or .tsv) next to the input.
type fakeTesseract struct {
	text       string
	tsv        string
	versionErr error
	runErr     error

	mu       sync.Mutex
	versions int
	calls    [][]string
}

func (f *fakeTesseract) Run(_ context.Context, _ string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(args) == 1 && args[0] == "--version" {
		f.versions++
		return []byte("tesseract 5.3.4\n leptonica-1.84.1\n"), nil, f.versionErr
	}
	f.calls = append(f.calls, args)
	if f.runErr != nil {
		return nil, []byte("Error opening data file"), f.runErr
	}
	outBase := args[1]
	if args[len(args)-1] == "tsv" {
		return nil, nil, os.WriteFile(outBase+".tsv", []byte(f.tsv), 0o600)
	}
	return nil, nil, os.WriteFile(outBase+".txt", []byte(f.text), 0o600)
}

func nativeConfig() common.OCRConfig {
	return common.OCRConfig{EnableNative: true, PSM: "11", Tesseract: "tesseract", Lang: "eng"}
}

func TestNativeAvailabilityProbedOnce(t *testing.T) {
	t.Parallel()

	f := &fakeTesseract{}
	b := NewNativeBackend(nativeConfig(), f, nil)
	for range 3 {
		if !b.Available(context.Background()) {
			t.Fatal("expected available")
		}
	}
	if f.versions != 1 {
		t.Errorf("version probed %d times, want 1", f.versions)
	}

	missing := NewNativeBackend(nativeConfig(), &fakeTesseract{versionErr: errors.New("executable file not found")}, nil)
	if missing.Available(context.Background()) {
		t.Error("missing binary reported available")
	}

	cfg := nativeConfig()
	cfg.EnableNative = false
	off := &fakeTesseract{}
	if NewNativeBackend(cfg, off, nil).Available(context.Background()) || off.versions != 0 {
		t.Error("disabled backend should not probe")
	}
}

func TestNativeRecognizeArgsAndCleanup(t *testing.T) {
	t.Parallel()

	f := &fakeTesseract{text: "P/N: 12345-ABC\n"}
	cfg := nativeConfig()
	cfg.TessdataDir = "/opt/tessdata"
	b := NewNativeBackend(cfg, f, nil)

	rec, err := b.Recognize(context.Background(), imgs("a.jpg", "b.jpg"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(rec.Texts) != 2 || rec.Texts[0] != "P/N: 12345-ABC\n" {
		t.Errorf("texts = %q", rec.Texts)
	}
	if rec.HasConfidence {
		t.Error("confidence reported without TSV pass")
	}

	args := f.calls[0]
	want := []string{"-c", "preserve_interword_spaces=1", "--psm", "11", "-l", "eng", "--tessdata-dir", "/opt/tessdata"}
	if !slices.Equal(args[2:], want) {
		t.Errorf("args = %q, want input, outbase, %q", args, want)
	}
	if _, err := os.Stat(filepath.Dir(args[0])); !os.IsNotExist(err) {
		t.Errorf("temp dir %s not removed after success (stat err %v)", filepath.Dir(args[0]), err)
	}
}

func TestNativeRecognizeFailureCleansUp(t *testing.T) {
	t.Parallel()

	f := &fakeTesseract{runErr: errors.New("exit status 1")}
	b := NewNativeBackend(nativeConfig(), f, nil)

	_, err := b.Recognize(context.Background(), imgs("a.jpg"))
	if !errors.Is(err, common.ErrBackendCall) {
		t.Fatalf("err = %v, want ErrBackendCall", err)
	}
	if _, statErr := os.Stat(filepath.Dir(f.calls[0][0])); !os.IsNotExist(statErr) {
		t.Errorf("temp dir not removed after failure (stat err %v)", statErr)
	}
}

func TestNativeTSVConfidence(t *testing.T) {
	t.Parallel()

	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t640\t480\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t90.5\tP/N\n" +
		"5\t1\t1\t1\t1\t2\t70\t10\t90\t20\t70.5\t12345-ABC\n"

	f := &fakeTesseract{text: "P/N 12345-ABC", tsv: tsv}
	cfg := nativeConfig()
	cfg.TSVConfidence = true
	rec, err := NewNativeBackend(cfg, f, nil).Recognize(context.Background(), imgs("a.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if !rec.HasConfidence || rec.Confidence != 81 {
		t.Errorf("confidence = %d (has=%v), want 81", rec.Confidence, rec.HasConfidence)
	}
}

// cancelAwareTesseract fails any call whose context is already done, like exec.CommandContext.
type cancelAwareTesseract struct{ fakeTesseract }

func (f *cancelAwareTesseract) Run(ctx context.Context, bin string, l *slog.Logger, args ...string) ([]byte, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return f.fakeTesseract.Run(ctx, bin, l, args...)
}

func TestNativeAvailabilityIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	f := &cancelAwareTesseract{}
	b := NewNativeBackend(nativeConfig(), f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !b.Available(ctx) {
		t.Fatal("first caller's cancellation disabled the native tier")
	}
	if !b.Available(context.Background()) {
		t.Error("later caller sees native tier unavailable")
	}
	if f.versions != 1 {
		t.Errorf("version probed %d times, want 1", f.versions)
	}
}
