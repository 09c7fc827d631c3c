package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"boneai-backend/internal/shared/metrics"
	"boneai-backend/internal/shared/telemetry"
)

const (
	// DefaultImageTimeout bounds how long rendering waits for the report image.
	DefaultImageTimeout = 20 * time.Second

	ImagePlaceholder     = "[Image could not be loaded]"
	CodeBlockPlaceholder = "[Code block omitted]"

	fontFamily = "Helvetica"
	imageName  = "report-image"
)

// Renderer lays reports out as A4 PDFs.
type Renderer struct {
	Images       ImageLoader
	ImageTimeout time.Duration
	// Uncompressed writes plain content streams, which makes output greppable.
	Uncompressed bool
}

// NewRenderer returns a Renderer that fetches images over HTTP from the given
// hosts. Data URIs are always accepted.
func NewRenderer(imageTimeout time.Duration, imageHosts ...string) *Renderer {
	return &Renderer{Images: HTTPImageLoader{AllowedHosts: imageHosts}, ImageTimeout: imageTimeout}
}

// Render returns the PDF bytes for r.
func (rn *Renderer) Render(ctx context.Context, r Report) ([]byte, error) {
	doc, err := rn.RenderDocument(ctx, r)
	if err != nil {
		return nil, err
	}
	return doc.Bytes, nil
}

// RenderDocument lays out r and reports where things landed. Only
// serialization failures are returned; a missing image is replaced by a placeholder.
func (rn *Renderer) RenderDocument(ctx context.Context, r Report) (*Document, error) {
	start := time.Now()
	l := newLayout(r.Timestamp, rn.Uncompressed)
	doc := &Document{}

	l.header(r)
	if strings.TrimSpace(r.ImageURL) != "" {
		data, err := rn.loadImage(ctx, r.ImageURL)
		if err == nil {
			doc.Image, err = l.image(data)
		}
		if err != nil {
			telemetry.Warn("report.image_unavailable", map[string]any{
				"request_id": telemetry.RequestID(ctx),
				"error":      err.Error(),
			})
			doc.ImageMissing = true
			l.placeholder(ImagePlaceholder)
		}
	}
	for i, section := range r.Sections {
		if i > 0 {
			l.gap()
		}
		l.section(section)
	}
	l.footers()

	var buf bytes.Buffer
	if err := l.pdf.Output(&buf); err != nil {
		metrics.IncReportFailed()
		return nil, &RenderError{Err: err}
	}
	metrics.IncReportRendered()
	metrics.ObserveReportRenderMs(float64(time.Since(start).Milliseconds()))
	doc.Bytes = buf.Bytes()
	doc.PageCount = l.pdf.PageCount()
	return doc, nil
}

func (rn *Renderer) loadImage(ctx context.Context, url string) ([]byte, error) {
	if rn.Images == nil {
		return nil, errors.New("no image loader configured")
	}
	timeout := rn.ImageTimeout
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := rn.Images.Load(ctx, url)
		done <- result{data: data, err: err}
	}()
	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("image load: %w", ctx.Err())
	}
}

type layout struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	y   float64
}

func newLayout(ts time.Time, uncompressed bool) *layout {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetCompression(!uncompressed)
	pdf.SetCatalogSort(true)
	pinned := ts.UTC()
	if ts.IsZero() {
		pinned = time.Unix(0, 0).UTC()
	}
	pdf.SetCreationDate(pinned)
	pdf.SetModificationDate(pinned)
	pdf.SetCreator("boneai-backend", false)

	l := &layout{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	l.newPage()
	return l
}

func (l *layout) newPage() {
	l.pdf.AddPage()
	l.y = marginTop
}

// ensure starts a new page when h more millimetres would cross the bottom margin.
func (l *layout) ensure(h float64) {
	if l.y+h > contentBottom {
		l.newPage()
	}
}

func (l *layout) header(r Report) {
	if title := toLatin1(strings.TrimSpace(r.Title)); title != "" {
		l.pdf.SetTitle(title, false)
		l.pdf.SetFont(fontFamily, "B", 18)
		for _, line := range l.pdf.SplitText(title, contentWidth) {
			l.ensure(9)
			l.pdf.SetXY(marginLeft, l.y)
			l.pdf.CellFormat(contentWidth, 9, l.tr(line), "", 0, "C", false, 0, "")
			l.y += 9
		}
	}

	l.pdf.SetFont(fontFamily, "", 10)
	if !r.Timestamp.IsZero() {
		l.cell("Generated: "+r.Timestamp.UTC().Format("2006-01-02 15:04 UTC"), "C")
	}
	for _, f := range r.Meta {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		l.cell(f.Label+": "+f.Value, "L")
	}
	if l.y > marginTop {
		l.y += lineHeight / 2
		l.pdf.SetDrawColor(200, 200, 200)
		l.pdf.Line(marginLeft, l.y, marginLeft+contentWidth, l.y)
		l.y += lineHeight / 2
	}
}

func (l *layout) cell(text, align string) {
	l.ensure(lineHeight)
	l.pdf.SetXY(marginLeft, l.y)
	l.pdf.CellFormat(contentWidth, lineHeight, l.tr(toLatin1(text)), "", 0, align, false, 0, "")
	l.y += lineHeight
}

func (l *layout) image(data []byte) (*Placement, error) {
	pxW, pxH, imgType, err := probeImage(data)
	if err != nil {
		return nil, err
	}
	w, h := ScaleToFit(float64(pxW), float64(pxH), contentWidth, MaxImageHeight)
	if w == 0 || h == 0 {
		return nil, errUnsupportedImage
	}

	opts := fpdf.ImageOptions{ImageType: imgType}
	l.pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(data))
	if err := l.pdf.Error(); err != nil {
		l.pdf.ClearError()
		return nil, err
	}

	l.ensure(h)
	x := marginLeft + (contentWidth-w)/2
	l.pdf.ImageOptions(imageName, x, l.y, w, h, false, opts, 0, "")
	placed := &Placement{Page: l.pdf.PageNo(), X: x, Y: l.y, W: w, H: h}
	l.y += h + lineHeight/2
	return placed, nil
}

func (l *layout) placeholder(text string) {
	l.pdf.SetFont(fontFamily, "I", 10)
	l.pdf.SetTextColor(120, 120, 120)
	l.cell(text, "C")
	l.pdf.SetTextColor(0, 0, 0)
}

func (l *layout) gap() {
	if l.y+lineHeight/2 <= contentBottom {
		l.y += lineHeight / 2
	}
}

func (l *layout) section(s Section) {
	if title := headingText(s.Title); title != "" {
		l.heading(title, 14)
	}

	inFence := false
	for _, raw := range SplitLines(s.Content) {
		kind := ClassifyLine(raw)
		if kind == LineCodeFence {
			if !inFence {
				l.placeholder(CodeBlockPlaceholder)
			}
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		switch kind {
		case LineBlank:
			l.gap()
		case LineHeading:
			l.heading(headingText(raw), 12)
		case LineBullet, LineNumbered:
			l.pdf.SetFont(fontFamily, "", 11)
			l.wrap(strings.TrimSpace(StripHTML(raw)), bulletIndent)
		default:
			l.pdf.SetFont(fontFamily, "", 11)
			l.wrap(strings.TrimSpace(StripHTML(raw)), 0)
		}
	}
}

func (l *layout) heading(text string, size float64) {
	l.pdf.SetFont(fontFamily, "B", size)
	for _, line := range l.pdf.SplitText(toLatin1(text), contentWidth) {
		l.ensure(headingHeight)
		l.pdf.SetXY(marginLeft, l.y)
		l.pdf.CellFormat(contentWidth, headingHeight, l.tr(line), "", 0, "L", false, 0, "")
		l.y += headingHeight
	}
}

// wrap splits text to the available width and checks the page break per physical line.
func (l *layout) wrap(text string, indent float64) {
	text = toLatin1(text)
	if text == "" {
		return
	}
	width := contentWidth - indent
	for _, line := range l.pdf.SplitText(text, width) {
		l.ensure(lineHeight)
		l.pdf.SetXY(marginLeft+indent, l.y)
		l.pdf.CellFormat(width, lineHeight, l.tr(line), "", 0, "L", false, 0, "")
		l.y += lineHeight
	}
}

func (l *layout) footers() {
	total := l.pdf.PageCount()
	for i := 1; i <= total; i++ {
		l.pdf.SetPage(i)
		l.pdf.SetFont(fontFamily, "", 9)
		l.pdf.SetTextColor(100, 100, 100)
		l.pdf.SetXY(marginLeft, pageHeight-footerOffset)
		l.pdf.CellFormat(contentWidth, 5, fmt.Sprintf("Page %d of %d", i, total), "", 0, "C", false, 0, "")
	}
	l.pdf.SetPage(total)
	l.pdf.SetTextColor(0, 0, 0)
}
