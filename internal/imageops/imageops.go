// Package imageops provides RGBA buffer cropping for decoded frames.
package imageops

import "math"

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// Crop returns the top-left dstW x dstH region of a srcW x srcH row-major
// RGBA8 buffer. The caller guarantees dstW <= srcW and dstH <= srcH. When
// the sizes match, the buffer is returned unchanged; when only rows are
// dropped, the leading bytes are reused without copying.
func Crop(buf []byte, srcW, srcH, dstW, dstH int) []byte {
	if srcW == dstW && srcH == dstH {
		return buf
	}
	if srcW == dstW {
		return buf[:dstW*dstH*BytesPerPixel]
	}
	out := make([]byte, dstW*dstH*BytesPerPixel)
	srcStride := srcW * BytesPerPixel
	dstStride := dstW * BytesPerPixel
	for row := 0; row < dstH; row++ {
		copy(out[row*dstStride:(row+1)*dstStride], buf[row*srcStride:row*srcStride+dstStride])
	}
	return out
}

// RenderSize computes the final frame size from the dimensions the codec
// reported and the configured render size. The reported dimensions are not
// trusted as the final size: the render height is scaled down by the
// integer factor that fits the decoded height, and both render dimensions
// are divided by that factor.
func RenderSize(decodedW, decodedH, renderW, renderH int) (int, int) {
	if decodedH <= 0 || renderW <= 0 || renderH <= 0 {
		return decodedW, decodedH
	}
	scale := (renderH + decodedH - 1) / decodedH
	if scale < 1 {
		scale = 1
	}
	outW := int(math.Round(float64(renderW) / float64(scale)))
	outH := int(math.Round(float64(renderH) / float64(scale)))
	return outW, outH
}
