package conversion

import (
	"fmt"
	"image"

	"mooney-stimuli/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ConvertToGrayscale converts multi-channel images to single-channel grayscale
func ConvertToGrayscale(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "grayscale conversion"); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if src.Channels() == 1 {
		return src.Clone()
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1, src.Tag()+"_gray")
	if err != nil {
		return nil, fmt.Errorf("destination Mat creation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	switch src.Channels() {
	case 3:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRAToGray)
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}

	return dst, nil
}

// GrayToMat copies a greyscale image into a single-channel 8-bit Mat.
func GrayToMat(img *image.Gray, tag string) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if err := safe.ValidateDimensions(width, height, "gray to Mat"); err != nil {
		return nil, err
	}

	// Repack so the buffer handed to OpenCV has stride == width.
	pix := make([]byte, width*height)
	for y := 0; y < height; y++ {
		row := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(pix[y*width:(y+1)*width], img.Pix[row:row+width])
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return nil, fmt.Errorf("Mat creation failed: %w", err)
	}

	return safe.Adopt(mat, tag)
}

// MatToGray converts a single-channel 8-bit Mat to a greyscale image.
func MatToGray(src *safe.Mat) (*image.Gray, error) {
	if err := safe.ValidateSingleChannel(src, "Mat to gray conversion"); err != nil {
		return nil, err
	}
	if src.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unsupported Mat type %v, want CV8UC1", src.Type())
	}

	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}

	rows, cols := src.Rows(), src.Cols()
	if len(data) != rows*cols {
		return nil, fmt.Errorf("pixel buffer holds %d bytes, want %d", len(data), rows*cols)
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	copy(img.Pix, data)
	return img, nil
}
