// Package webpenc is a pure Go WebP lossless encoder.
//
// It turns tightly packed RGBA8 pixels into a complete WebP file: the pixels
// are validated, decorrelated with the subtract-green and spatial predictor
// transforms, entropy coded with LZ77 back-references, a color cache and
// canonical prefix codes, and finally wrapped in a RIFF container. ICC, EXIF
// and XMP metadata switch the output to the extended (VP8X) layout.
//
// Basic usage:
//
//	data, err := webpenc.Encode(pix, width, height)
//
// Encoding an image.Image:
//
//	err := webpenc.EncodeImage(w, img, &webpenc.Options{Quality: 90})
//
// Encoding is deterministic: the same pixels and options always produce the
// same bytes. Calls share no state and may run concurrently.
package webpenc
