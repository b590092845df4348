package converter

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	log "github.com/sirupsen/logrus"

	"andretools/internal/util"
)

const (
	pdfAuthor  = "Andre Tools Converter"
	pdfCreator = "Andre Tools"
)

// imageToPDF writes a single page sized exactly to the image.
func imageToPDF(img image.Image, outputPath, mediaType string) error {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return fmt.Errorf("image has no pixels")
	}

	var buf bytes.Buffer
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	if mediaType == "image/jpeg" {
		opts.ImageType = "JPG"
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return fmt.Errorf("encode page image: %w", err)
		}
	} else if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return fmt.Errorf("encode page image: %w", err)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(pdfCreator, true)
	pdf.AddPage()
	pdf.RegisterImageOptionsReader("page", opts, &buf)
	pdf.ImageOptions("page", 0, 0, w, h, false, opts, 0, "")

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// textToPDF lays plain text out on A4 pages in Helvetica 12.
func textToPDF(inputPath, outputPath, title string, now time.Time) error {
	binary, err := util.IsLikelyBinary(inputPath)
	if err != nil {
		return fmt.Errorf("read text: %w", err)
	}
	if binary {
		return fmt.Errorf("input does not look like plain text")
	}
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read text: %w", err)
	}
	content, unmapped := util.FoldForCoreFonts(raw)
	if unmapped > 0 {
		log.WithFields(log.Fields{"file": filepath.Base(inputPath), "unmapped": unmapped}).
			Warn("characters outside the PDF core font repertoire were replaced")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(pdfAuthor, true)
	pdf.SetCreator(pdfCreator, true)
	pdf.SetCreationDate(now)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.MultiCell(0, 6, tr(content), "", "L", false)

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
