package extractor

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Per-channel mean pixel of the VGG training set, BGR order. Subtracted
// from every pixel so inputs match the pretrained network's convention.
var meanPixel = [Channels]float32{103.939, 116.779, 123.68}

// LoadImage reads an image file, center-crops it to a square, resizes to
// ImageSize x ImageSize and returns the mean-subtracted BGR pixels as a flat
// float32 slice of length ImageFloats. Any unreadable or non-image file is
// an error; callers treat that as fatal for the whole run.
func LoadImage(path string) ([]float32, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("cannot read image %v", path)
	}
	defer img.Close()

	w := img.Cols()
	h := img.Rows()
	side := w
	if h < side {
		side = h
	}
	x0 := (w - side) / 2
	y0 := (h - side) / 2
	crop := img.Region(image.Rect(x0, y0, x0+side, y0+side))
	defer crop.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(crop, &resized, image.Pt(ImageSize, ImageSize), 0, 0, gocv.InterpolationArea)

	f32 := gocv.NewMat()
	defer f32.Close()
	resized.ConvertTo(&f32, gocv.MatTypeCV32FC3)

	pixels, err := f32.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read pixels of %v: %w", path, err)
	}
	if len(pixels) != ImageFloats {
		return nil, fmt.Errorf("image %v decoded to %v floats, expected %v", path, len(pixels), ImageFloats)
	}
	out := make([]float32, ImageFloats)
	for i := 0; i < ImageFloats; i += Channels {
		out[i] = pixels[i] - meanPixel[0]
		out[i+1] = pixels[i+1] - meanPixel[1]
		out[i+2] = pixels[i+2] - meanPixel[2]
	}
	return out, nil
}
