package classifier

import (
	"image"
	"math"

	"github.com/nfnt/resize"

	"go-image-identifier/pkg/models"
)

// ToTensor resizes img to a square of meta.ImageSize and lays out normalized
// RGB values in the model's channel order.
func ToTensor(img image.Image, meta *Metadata) []float32 {
	size := meta.ImageSize
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	bounds := resized.Bounds()

	plane := size * size
	out := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rgb := [3]float32{
				float32(r>>8) / 255.0,
				float32(g>>8) / 255.0,
				float32(b>>8) / 255.0,
			}
			for c := 0; c < 3; c++ {
				v := (rgb[c] - meta.Mean[c]) / meta.Std[c]
				if meta.Layout == LayoutNHWC {
					out[(y*size+x)*3+c] = v
				} else {
					out[c*plane+y*size+x] = v
				}
			}
		}
	}
	return out
}

// Softmax converts logits to probabilities
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// ToPredictions pairs scores with class labels. Scores beyond the label list
// are ignored.
func ToPredictions(scores []float32, classes []string) []models.Prediction {
	n := len(scores)
	if len(classes) < n {
		n = len(classes)
	}
	preds := make([]models.Prediction, n)
	for i := 0; i < n; i++ {
		preds[i] = models.Prediction{
			Label:       classes[i],
			Probability: float64(scores[i]),
		}
	}
	return preds
}
