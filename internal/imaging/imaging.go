// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging produces display and thumbnail variants of uploaded
// photos. JPEG, PNG, GIF and WebP sources are accepted; images are never
// upscaled.
//
// PNG sources are re-encoded as PNG so transparency survives. Every other
// format becomes JPEG, with transparent areas flattened onto white first
// because JPEG has no alpha channel.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrUnsupported is returned for payloads image.Decode cannot read.
var ErrUnsupported = errors.New("unsupported image format")

// Variant is one output size. Both bounds are maxima; aspect ratio is kept.
type Variant struct {
	Name      string
	MaxWidth  uint
	MaxHeight uint
	Quality   int
}

// Default variants written for every uploaded photo.
var (
	Display = Variant{Name: "display", MaxWidth: 1920, MaxHeight: 1920, Quality: 85}
	Thumb   = Variant{Name: "thumb", MaxWidth: 480, MaxHeight: 480, Quality: 80}
)

// Processed is an encoded variant ready for upload.
type Processed struct {
	Name        string
	Width       int
	Height      int
	Data        []byte
	ContentType string
	Ext         string
}

// Process decodes original once and renders each variant.
func Process(original []byte, variants ...Variant) ([]Processed, error) {
	img, format, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if format != "png" {
		img = flatten(img)
	}

	out := make([]Processed, 0, len(variants))
	for _, v := range variants {
		scaled := resize.Thumbnail(v.MaxWidth, v.MaxHeight, img, resize.Lanczos3)

		var buf bytes.Buffer
		p := Processed{Name: v.Name}
		if format == "png" {
			err = png.Encode(&buf, scaled)
			p.ContentType, p.Ext = "image/png", ".png"
		} else {
			err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: v.Quality})
			p.ContentType, p.Ext = "image/jpeg", ".jpg"
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s variant: %w", v.Name, err)
		}

		b := scaled.Bounds()
		p.Width, p.Height = b.Dx(), b.Dy()
		p.Data = buf.Bytes()
		out = append(out, p)
	}
	return out, nil
}

// flatten composites img over a white background. Opaque images are
// returned unchanged.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
