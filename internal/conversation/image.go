package conversation

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"

	"github.com/disintegration/imaging"

	"github.com/zaytsevrv/jarvis-assistant/internal/llm"
)

// maxVisionEdge bounds the long edge of an image sent to the vision model,
// matching common vision-model sizing guidance (spec.md §4.4 "Images").
const maxVisionEdge = 1568

// prepareVisionImage downsizes raw to fit within maxVisionEdge on its long
// edge and re-encodes as JPEG, grounded on the teacher's media.go image
// pre-processing step ahead of a vision call.
func prepareVisionImage(raw []byte) (llm.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return llm.Image{}, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxVisionEdge || h > maxVisionEdge {
		if w >= h {
			img = imaging.Resize(img, maxVisionEdge, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxVisionEdge, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return llm.Image{}, err
	}

	return llm.Image{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
}
