package converter

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const jpegQuality = 90

// convertImage re-encodes between JPEG and PNG, or wraps the image in a PDF.
func convertImage(inputPath, outputPath, mediaType, format string) error {
	img, err := imaging.Open(inputPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	switch format {
	case "jpg", "jpeg":
		// JPEG has no alpha channel; flatten onto white instead of black.
		b := img.Bounds()
		flat := imaging.New(b.Dx(), b.Dy(), color.White)
		flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)
		if err := imaging.Save(flat, outputPath, imaging.JPEGQuality(jpegQuality)); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	case "png":
		if err := imaging.Save(img, outputPath); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	case "pdf":
		return imageToPDF(img, outputPath, mediaType)
	default:
		return fmt.Errorf("no image encoder for %q", format)
	}
	return nil
}
