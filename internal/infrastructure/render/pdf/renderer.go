// Package pdf lays out an audit report document as an A4 landscape PDF.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/kirillkom/catman-audit/internal/core/domain"
)

const (
	pageWidth   = 297.0
	pageHeight  = 210.0
	margin      = 10.0
	columnGap   = 4.0
	columns     = 4
	lineHeight  = 4.2
	photoHeight = 26.0
	footerSpace = 12.0
)

type rgb struct{ r, g, b int }

var (
	colorPrimary   = rgb{21, 67, 96}
	colorStrong    = rgb{46, 125, 50}
	colorModerate  = rgb{239, 108, 0}
	colorWeak      = rgb{198, 40, 40}
	colorUndefined = rgb{120, 120, 120}
	colorMuted     = rgb{245, 245, 245}
	colorText      = rgb{33, 33, 33}
)

type Options struct {
	Fetcher      PhotoFetcher
	PhotoTimeout time.Duration
	Concurrency  int
	Logger       *slog.Logger
}

type Renderer struct {
	fetcher      PhotoFetcher
	photoTimeout time.Duration
	concurrency  int
	logger       *slog.Logger
}

func NewRenderer(options Options) *Renderer {
	r := &Renderer{
		fetcher:      options.Fetcher,
		photoTimeout: options.PhotoTimeout,
		concurrency:  options.Concurrency,
		logger:       options.Logger,
	}
	if r.photoTimeout <= 0 {
		r.photoTimeout = 15 * time.Second
	}
	if r.concurrency <= 0 {
		r.concurrency = 4
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Render produces the PDF bytes. Photos that cannot be fetched or decoded
// are drawn as placeholders; only a layout failure aborts the document.
func (r *Renderer) Render(ctx context.Context, doc domain.ReportDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrRender, "render report", err)
	}

	w := &writer{
		pdf:    fpdf.New("L", "mm", "A4", ""),
		photos: r.loadPhotos(ctx, photoURLs(doc)),
	}
	w.tr = w.pdf.UnicodeTranslatorFromDescriptor("")
	w.colWidth = (pageWidth - 2*margin - float64(columns-1)*columnGap) / columns

	w.pdf.SetTitle("Rapport d'audit "+doc.Header.StoreName, true)
	w.pdf.SetCreator("catman-audit", true)
	w.pdf.SetCreationDate(doc.GeneratedAt)
	w.pdf.SetMargins(margin, margin, margin)
	w.pdf.SetAutoPageBreak(true, footerSpace)
	w.pdf.AliasNbPages("")
	w.pdf.SetFooterFunc(func() { w.footer(doc) })

	w.pdf.AddPage()
	w.header(doc.Header)
	w.scorecards(doc.Scorecards)
	w.goldenRules(doc.GoldenRules)
	w.barriers(doc.Barriers)
	w.pharmacist(doc.Pharmacist)
	w.observation(doc.Observation)

	w.pdf.AddPage()
	w.details(doc.Details)

	if err := w.pdf.Error(); err != nil {
		return nil, domain.WrapError(domain.ErrRender, "layout report", err)
	}
	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, domain.WrapError(domain.ErrRender, "write report", err)
	}
	return buf.Bytes(), nil
}

func photoURLs(doc domain.ReportDocument) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, category := range doc.Details {
		for _, c := range category.Criteria {
			if c.Photo == "" {
				continue
			}
			if _, ok := seen[c.Photo]; ok {
				continue
			}
			seen[c.Photo] = struct{}{}
			urls = append(urls, c.Photo)
		}
	}
	return urls
}

type writer struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	photos   map[string]photo
	colWidth float64
	images   int
}

func (w *writer) font(style string, size float64, c rgb) {
	w.pdf.SetFont("Helvetica", style, size)
	w.pdf.SetTextColor(c.r, c.g, c.b)
}

func (w *writer) fill(c rgb) {
	w.pdf.SetFillColor(c.r, c.g, c.b)
}

func (w *writer) sectionTitle(title string) {
	w.pdf.Ln(3)
	w.font("B", 12, colorPrimary)
	w.pdf.CellFormat(0, 7, w.tr(title), "B", 1, "L", false, 0, "")
	w.pdf.Ln(1)
}

func (w *writer) header(h domain.ReportHeader) {
	w.fill(colorPrimary)
	w.font("B", 18, rgb{255, 255, 255})
	w.pdf.CellFormat(0, 14, w.tr("Rapport d'audit CATMAN"), "", 1, "C", true, 0, "")
	w.pdf.Ln(3)

	left := [][2]string{
		{"Magasin", fmt.Sprintf("%s (%s)", h.StoreName, h.StoreTypeLabel)},
		{"Catégorie analysée", h.CategoryAnalyzed},
	}
	right := [][2]string{
		{"Auditeur", h.AuditorName},
		{"Date", h.CreatedAt.Format("02/01/2006 15:04")},
	}
	if h.WeatherLabel != "" {
		left = append(left, [2]string{"Météo", h.WeatherLabel})
	}
	right = append(right, [2]string{"Score global", fmt.Sprintf("%d / %d", h.Score, h.Total)})

	half := (pageWidth - 2*margin) / 2
	rows := max(len(left), len(right))
	for i := 0; i < rows; i++ {
		for _, side := range [][][2]string{left, right} {
			if i >= len(side) {
				w.pdf.CellFormat(half, 6, "", "", 0, "L", false, 0, "")
				continue
			}
			w.font("B", 10, colorText)
			w.pdf.CellFormat(38, 6, w.tr(side[i][0]+" :"), "", 0, "L", false, 0, "")
			w.font("", 10, colorText)
			w.pdf.CellFormat(half-38, 6, w.tr(side[i][1]), "", 0, "L", false, 0, "")
		}
		w.pdf.Ln(6)
	}
}

func bandColor(b domain.Band) rgb {
	switch b {
	case domain.BandStrong:
		return colorStrong
	case domain.BandModerate:
		return colorModerate
	case domain.BandWeak:
		return colorWeak
	default:
		return colorUndefined
	}
}

func bandLabel(b domain.Band) string {
	switch b {
	case domain.BandStrong:
		return "Maîtrisé"
	case domain.BandModerate:
		return "À consolider"
	case domain.BandWeak:
		return "Prioritaire"
	default:
		return "Non évalué"
	}
}

func badgeColor(badge string) rgb {
	switch domain.Evaluation(badge) {
	case domain.EvalOui:
		return colorStrong
	case domain.EvalPartiel:
		return colorModerate
	case domain.EvalNon:
		return colorWeak
	default:
		return colorUndefined
	}
}

func (w *writer) scorecards(cards []domain.ReportScorecard) {
	w.sectionTitle("Synthèse par catégorie")

	w.font("", 8, colorText)
	height := 30.0
	for _, card := range cards {
		lines := w.pdf.SplitText(w.tr(card.Narrative), w.colWidth-4)
		height = max(height, 24+float64(len(lines))*3.6)
	}

	top := w.pdf.GetY()
	if top+height > pageHeight-footerSpace {
		w.pdf.AddPage()
		top = w.pdf.GetY()
	}
	for i, card := range cards {
		x := margin + float64(i)*(w.colWidth+columnGap)
		color := bandColor(card.Band)

		w.fill(colorMuted)
		w.pdf.Rect(x, top, w.colWidth, height, "F")
		w.fill(color)
		w.pdf.Rect(x, top, w.colWidth, 1.5, "F")

		w.pdf.SetXY(x+2, top+3)
		w.font("B", 10, colorText)
		w.pdf.CellFormat(w.colWidth-4, 5, w.tr(card.Label), "", 2, "L", false, 0, "")
		w.font("B", 16, color)
		w.pdf.CellFormat(w.colWidth-4, 8, fmt.Sprintf("%d / %d", card.Score, card.Total), "", 2, "L", false, 0, "")
		w.font("B", 9, color)
		w.pdf.CellFormat(w.colWidth-4, 5, w.tr(bandLabel(card.Band)), "", 2, "L", false, 0, "")
		if card.Narrative != "" {
			w.font("", 8, colorText)
			w.pdf.MultiCell(w.colWidth-4, 3.6, w.tr(card.Narrative), "", "L", false)
		}
	}
	w.pdf.SetXY(margin, top+height+2)
}

func (w *writer) goldenRules(block domain.ReportGoldenRules) {
	w.sectionTitle(fmt.Sprintf("Règles d'or (%d / %d)", block.Checked, block.Total))
	half := (pageWidth - 2*margin) / 2
	for i, rule := range block.Rules {
		mark, color := "[  ]", colorUndefined
		if rule.Checked {
			mark, color = "[X]", colorStrong
		}
		w.font("B", 9, color)
		w.pdf.CellFormat(8, 5, mark, "", 0, "L", false, 0, "")
		w.font("", 9, colorText)
		ln := 0
		if i%2 == 1 || i == len(block.Rules)-1 {
			ln = 1
		}
		w.pdf.CellFormat(half-8, 5, w.tr(rule.Label), "", ln, "L", false, 0, "")
	}
}

func (w *writer) barriers(block domain.ReportBarriers) {
	w.sectionTitle("Freins identifiés")
	if len(block.Labels) == 0 {
		w.font("I", 9, colorUndefined)
		w.pdf.CellFormat(0, 5, w.tr(block.Placeholder), "", 1, "L", false, 0, "")
		return
	}
	w.font("", 9, colorText)
	w.pdf.MultiCell(0, 5, w.tr(strings.Join(block.Labels, "  |  ")), "", "L", false)
}

func (w *writer) pharmacist(block *domain.ReportPharmacist) {
	if block == nil {
		return
	}
	w.sectionTitle("Conseil du pharmacien")
	color := colorWeak
	if block.Helped {
		color = colorStrong
	}
	w.font("B", 9, color)
	w.pdf.CellFormat(0, 5, w.tr(block.Text), "", 1, "L", false, 0, "")
}

func (w *writer) observation(block domain.ReportObservation) {
	w.sectionTitle("Observation principale")
	if block.Placeholder {
		w.font("I", 9, colorUndefined)
	} else {
		w.font("", 9, colorText)
	}
	w.pdf.MultiCell(0, 5, w.tr(block.Text), "", "L", false)
}

// details lays the four categories out side by side. Rows are aligned
// across columns so a page break never splits a criterion.
func (w *writer) details(categories []domain.ReportCategory) {
	w.font("B", 14, colorPrimary)
	w.pdf.CellFormat(0, 8, w.tr("Détail des critères"), "", 1, "L", false, 0, "")
	w.columnHeaders(categories)

	rows := 0
	for _, category := range categories {
		rows = max(rows, len(category.Criteria))
	}

	y := w.pdf.GetY()
	for row := 0; row < rows; row++ {
		height := 0.0
		for _, category := range categories {
			if row < len(category.Criteria) {
				height = max(height, w.criterionHeight(category.Criteria[row]))
			}
		}
		if y+height > pageHeight-footerSpace {
			w.pdf.AddPage()
			w.columnHeaders(categories)
			y = w.pdf.GetY()
		}
		for col, category := range categories {
			if col >= columns || row >= len(category.Criteria) {
				continue
			}
			x := margin + float64(col)*(w.colWidth+columnGap)
			w.criterion(x, y, height, category.Criteria[row])
		}
		y += height + 2
	}
	w.pdf.SetXY(margin, y)
}

func (w *writer) columnHeaders(categories []domain.ReportCategory) {
	y := w.pdf.GetY()
	w.fill(colorPrimary)
	w.font("B", 10, rgb{255, 255, 255})
	for col, category := range categories {
		if col >= columns {
			break
		}
		x := margin + float64(col)*(w.colWidth+columnGap)
		w.pdf.SetXY(x, y)
		w.pdf.CellFormat(w.colWidth, 7, w.tr(category.Label), "", 0, "C", true, 0, "")
	}
	w.pdf.SetXY(margin, y+9)
}

func (w *writer) criterionHeight(c domain.ReportCriterion) float64 {
	inner := w.colWidth - 4
	w.font("B", 8.5, colorText)
	h := 2 + float64(len(w.pdf.SplitText(w.tr(c.Label), inner-14)))*lineHeight
	h = max(h, 2+lineHeight+1)
	if c.Comment != "" {
		w.font("I", 8, colorText)
		h += float64(len(w.pdf.SplitText(w.tr(c.Comment), inner))) * 3.6
	}
	if c.Photo != "" {
		h += photoHeight + 2
	}
	return h + 2
}

func (w *writer) criterion(x, y, height float64, c domain.ReportCriterion) {
	inner := w.colWidth - 4
	w.fill(colorMuted)
	w.pdf.Rect(x, y, w.colWidth, height, "F")

	badge := c.Badge
	color := badgeColor(badge)
	w.fill(color)
	w.font("B", 7.5, rgb{255, 255, 255})
	w.pdf.SetXY(x+w.colWidth-14, y+1.5)
	w.pdf.CellFormat(12, lineHeight, w.tr(badge), "", 0, "C", true, 0, "")

	w.pdf.SetXY(x+2, y+1.5)
	w.font("B", 8.5, colorText)
	w.pdf.MultiCell(inner-14, lineHeight, w.tr(c.Label), "", "L", false)
	cursor := max(w.pdf.GetY(), y+1.5+lineHeight+1)

	if c.Comment != "" {
		w.pdf.SetXY(x+2, cursor)
		w.font("I", 8, colorText)
		w.pdf.MultiCell(inner, 3.6, w.tr(c.Comment), "", "L", false)
		cursor = w.pdf.GetY()
	}

	if c.Photo != "" {
		w.photo(x+2, cursor+1, inner, c.Photo)
	}
}

func (w *writer) photo(x, y, maxWidth float64, url string) {
	p, ok := w.photos[url]
	if !ok {
		w.pdf.SetDrawColor(colorUndefined.r, colorUndefined.g, colorUndefined.b)
		w.pdf.Rect(x, y, maxWidth, photoHeight, "D")
		w.pdf.SetXY(x, y+photoHeight/2-2)
		w.font("I", 7.5, colorUndefined)
		w.pdf.CellFormat(maxWidth, 4, w.tr("Photo indisponible"), "", 0, "C", false, 0, "")
		return
	}

	width := min(photoHeight*p.ratio(), maxWidth)
	height := width / p.ratio()
	w.images++
	name := "photo-" + strconv.Itoa(w.images)
	options := fpdf.ImageOptions{ImageType: "JPG"}
	w.pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(p.data))
	w.pdf.ImageOptions(name, x+(maxWidth-width)/2, y, width, height, false, options, 0, url)
}

func (w *writer) footer(doc domain.ReportDocument) {
	w.pdf.SetY(-9)
	w.font("", 7.5, colorUndefined)
	text := fmt.Sprintf("Audit %s - généré le %s - page %d/{nb}",
		doc.Header.AuditID, doc.GeneratedAt.Format("02/01/2006 15:04"), w.pdf.PageNo())
	w.pdf.CellFormat(0, 5, w.tr(text), "", 0, "C", false, 0, "")
}
