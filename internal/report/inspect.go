package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

var ErrNotPDF = errors.New("not a PDF document")

// Inspect parses data as a PDF and returns its page count.
func Inspect(data []byte) (pages int, err error) {
	defer recoverParse(&err)
	r, err := openPDF(data)
	if err != nil {
		return 0, err
	}
	pages = r.NumPage()
	if pages == 0 {
		return 0, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return pages, nil
}

// ExtractText returns the plain text of every page.
func ExtractText(data []byte) (text string, err error) {
	defer recoverParse(&err)
	r, err := openPDF(data)
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func openPDF(data []byte) (*pdf.Reader, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return r, nil
}

// recoverParse turns parser panics on malformed input into ErrNotPDF.
func recoverParse(err *error) {
	if rec := recover(); rec != nil {
		*err = fmt.Errorf("%w: %v", ErrNotPDF, rec)
	}
}
