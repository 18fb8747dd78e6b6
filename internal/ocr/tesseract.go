package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tesseract runs the tesseract binary over stdin/stdout.  Each call is
// one short-lived process, so a crashed recognition never poisons the
// server.  The binary must be on PATH; Available reports whether it is.
type Tesseract struct {
	Binary string // executable name or path, defaults to "tesseract"
	Lang   string // traineddata language, defaults to "ocrb" falling back to "eng"
}

// NewTesseract returns a Tesseract adapter with default settings.
func NewTesseract() *Tesseract {
	return &Tesseract{Binary: "tesseract", Lang: "eng"}
}

// Available reports whether the tesseract binary can be found.  The
// server degrades gracefully when it cannot: document scanning is
// disabled and travelers are entered manually.
func (t *Tesseract) Available() bool {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	_, err := exec.LookPath(bin)
	return err == nil
}

// RecognizeText feeds the image to tesseract on stdin and reads the
// recognized text from stdout.  The whitelist is passed through
// tessedit_char_whitelist; page segmentation mode 6 treats the image as
// a uniform block of text, which suits a document data page.
func (t *Tesseract) RecognizeText(ctx context.Context, image []byte, whitelist string) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	lang := t.Lang
	if lang == "" {
		lang = "eng"
	}

	args := []string{"stdin", "stdout", "-l", lang, "--psm", "6"}
	if whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+whitelist)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(image)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("ocr: tesseract failed: %s", msg)
	}
	return out.String(), nil
}
