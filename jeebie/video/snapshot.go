package video

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// SaveFrameGrayPNG writes the framebuffer to path as a grayscale PNG, one of
// the four Game Boy shades per pixel. Used by the integration test suite to
// produce human-reviewable snapshots alongside its binary golden files.
func SaveFrameGrayPNG(fb *FrameBuffer, path string) error {
	img := image.NewGray(image.Rect(0, 0, FramebufferWidth, FramebufferHeight))

	frame := fb.ToSlice()
	for y := 0; y < FramebufferHeight; y++ {
		for x := 0; x < FramebufferWidth; x++ {
			pixel := GBColor(frame[y*FramebufferWidth+x])

			var gray uint8
			switch pixel {
			case BlackColor:
				gray = 0
			case DarkGreyColor:
				gray = 85
			case LightGreyColor:
				gray = 170
			case WhiteColor:
				gray = 255
			}

			img.SetGray(x, y, color.Gray{Y: gray})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("video: creating snapshot file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("video: encoding snapshot PNG: %w", err)
	}
	return nil
}
