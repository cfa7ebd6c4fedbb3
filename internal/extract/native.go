package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// NativeText extracts the text layer of a PDF. Returns the empty string
// without error for image-only documents; the caller decides whether to go
// to OCR.
func NativeText(path string) (text string, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("NativeText: pdf library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("NativeText: open %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String()), nil
}

// NativePreview returns up to maxChars characters of native text, reading
// only as many pages as needed. A blank preview means the document has no
// usable text layer.
func NativePreview(path string, maxChars int) (preview string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("NativePreview: pdf library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("NativePreview: open %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		if b.Len() >= maxChars {
			break
		}
	}

	s := b.String()
	if len(s) > maxChars {
		s = s[:maxChars]
	}
	return s, nil
}
