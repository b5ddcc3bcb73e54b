// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging normalises uploaded images before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Upload limits.
const (
	MaxUploadSize = 20 << 20
	MaxDimension  = 2400
	JPEGQuality   = 85
)

// Content types produced and accepted.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// ErrUnsupportedFormat is returned for anything but JPEG, PNG, GIF or WebP.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Result is a normalised image ready for upload.
type Result struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
	Ext         string
}

// Normalize decodes an image, applies its EXIF orientation, downscales it to
// fit MaxDimension and re-encodes it. Images with transparency become PNG;
// everything else becomes JPEG. Metadata is not carried over.
func Normalize(r io.Reader) (Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return Result{}, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > MaxUploadSize {
		return Result{}, fmt.Errorf("image exceeds %d bytes", MaxUploadSize)
	}
	if DetectMimeType(data) == "" {
		return Result{}, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decoding image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	// Fit never upscales and always returns a fresh NRGBA.
	out := imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	res := Result{Width: out.Bounds().Dx(), Height: out.Bounds().Dy()}
	if out.Opaque() {
		res.ContentType, res.Ext = MimeTypeJPEG, "jpg"
		err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality})
	} else {
		res.ContentType, res.Ext = MimeTypePNG, "png"
		err = png.Encode(&buf, out)
	}
	if err != nil {
		return Result{}, fmt.Errorf("encoding image: %w", err)
	}
	res.Data = buf.Bytes()
	return res, nil
}

// DetectMimeType sniffs data and returns one of the accepted image types,
// or "" for anything else.
func DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	// TIFF is rejected outright (CVE-2023-36308 in disintegration/imaging).
	switch contentType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return contentType
	default:
		return ""
	}
}

// readExifOrientation returns the EXIF orientation tag, or 1 when absent.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation undoes an EXIF orientation:
// 2 flip H, 3 rotate 180, 4 flip V, 5 transpose, 6 rotate 90 CW,
// 7 transverse, 8 rotate 90 CCW.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
