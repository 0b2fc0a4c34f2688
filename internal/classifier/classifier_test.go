package classifier

import (
	"context"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestToTensor_Layouts(t *testing.T) {
	img := solid(10, 6, color.RGBA{R: 255, G: 0, B: 51, A: 255})

	tests := []struct {
		layout string
		index  func(c, y, x, size int) int
	}{
		{LayoutNCHW, func(c, y, x, size int) int { return c*size*size + y*size + x }},
		{LayoutNHWC, func(c, y, x, size int) int { return (y*size+x)*3 + c }},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			meta := &Metadata{
				ImageSize: 4,
				Layout:    tt.layout,
				Mean:      []float32{0.5, 0.5, 0.5},
				Std:       []float32{0.5, 0.5, 0.5},
			}
			out := ToTensor(img, meta)
			if len(out) != 3*4*4 {
				t.Fatalf("Expected 48 values, got %d", len(out))
			}

			want := [3]float32{1, -1, -0.6}
			for c := 0; c < 3; c++ {
				got := out[tt.index(c, 2, 3, 4)]
				if math.Abs(float64(got-want[c])) > 0.01 {
					t.Errorf("channel %d = %f, want %f", c, got, want[c])
				}
			}
		})
	}
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3})
	var sum float32
	for _, p := range probs {
		sum += p
	}
	if math.Abs(float64(sum-1)) > 1e-5 {
		t.Errorf("Expected probabilities to sum to 1, got %f", sum)
	}
	if !(probs[2] > probs[1] && probs[1] > probs[0]) {
		t.Errorf("Expected order to be preserved, got %v", probs)
	}

	big := Softmax([]float32{1000, 1000})
	if math.IsNaN(float64(big[0])) || math.Abs(float64(big[0]-0.5)) > 1e-5 {
		t.Errorf("Expected stable softmax for large logits, got %v", big)
	}

	if Softmax(nil) != nil {
		t.Error("Expected nil for empty input")
	}
}

func TestToPredictions(t *testing.T) {
	preds := ToPredictions([]float32{0.1, 0.7, 0.2, 0.9}, []string{"cat", "dog", "fish"})
	if len(preds) != 3 {
		t.Fatalf("Expected 3 predictions, got %d", len(preds))
	}
	if preds[1].Label != "dog" || math.Abs(preds[1].Probability-0.7) > 1e-6 {
		t.Errorf("Unexpected prediction %+v", preds[1])
	}
	for _, p := range preds {
		if p.BestGuess {
			t.Error("ToPredictions must not rank")
		}
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid with defaults", `{"input_shape":[1,3,224,224],"output_shape":[1,3],"classes":["a","b","c"]}`, false},
		{"nhwc", `{"input_shape":[1,96,96,3],"output_shape":[1,2],"classes":["a","b"],"layout":"nhwc"}`, false},
		{"bad json", `{`, true},
		{"no classes", `{"input_shape":[1,3,8,8],"output_shape":[1,3]}`, true},
		{"output too small", `{"input_shape":[1,3,8,8],"output_shape":[1,1],"classes":["a","b"]}`, true},
		{"bad layout", `{"input_shape":[1,3,8,8],"output_shape":[1,1],"classes":["a"],"layout":"chw"}`, true},
		{"zero std", `{"input_shape":[1,3,8,8],"output_shape":[1,1],"classes":["a"],"std":[1,0,1]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			meta, err := LoadMetadata(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadMetadata() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if meta.InputName != "input" || meta.OutputName != "output" {
				t.Errorf("Expected default tensor names, got %s/%s", meta.InputName, meta.OutputName)
			}
		})
	}

	meta, err := LoadMetadata(filepath.Join(dir, "nhwc.json"))
	if err != nil {
		t.Fatal(err)
	}
	if meta.ImageSize != 96 {
		t.Errorf("Expected image size 96 from NHWC shape, got %d", meta.ImageSize)
	}
}

func TestOnnxProvider_MissingMetadata(t *testing.T) {
	p := NewOnnxProvider("model.onnx", filepath.Join(t.TempDir(), "missing.json"), "", nil)
	if _, err := p.Load(context.Background()); err == nil {
		t.Error("Expected error for missing metadata")
	}
}
