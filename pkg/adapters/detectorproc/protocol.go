package detectorproc

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/user/frame2prompt/pkg/ports"
)

// maxMessageSize bounds a single framed message (a 4K frame plus masks fits well below it).
const maxMessageSize = 256 << 20

// request is sent to the worker for every frame.
type request struct {
	Seq    uint64 `msgpack:"seq"`
	Width  int    `msgpack:"width"`
	Height int    `msgpack:"height"`
	Image  []byte `msgpack:"image"` // JPEG
}

// response is the worker's reply to a request with the same Seq.
type response struct {
	Seq        uint64          `msgpack:"seq"`
	Detections []wireDetection `msgpack:"detections"`
	Error      string          `msgpack:"error"`
}

type wireDetection struct {
	Box        [4]float64 `msgpack:"box"` // x1, y1, x2, y2 in frame pixels
	Confidence float64    `msgpack:"confidence"`
	Label      int        `msgpack:"label"`
	MaskWidth  int        `msgpack:"mask_width"`
	MaskHeight int        `msgpack:"mask_height"`
	Mask       []byte     `msgpack:"mask"` // One byte per pixel, row-major
}

// writeMessage writes v as a 4-byte big-endian length prefix followed by msgpack data.
func writeMessage(w io.Writer, v interface{}) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal msgpack: %w", err)
	}

	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, uint32(len(data)))
	if _, err := w.Write(prefix); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write msgpack data: %w", err)
	}
	return nil
}

// readMessage reads one length-prefixed msgpack message into v.
func readMessage(r io.Reader, v interface{}) error {
	prefix := make([]byte, 4)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return fmt.Errorf("read length prefix: %w", err)
	}

	n := binary.BigEndian.Uint32(prefix)
	if n > maxMessageSize {
		return fmt.Errorf("%w: message of %d bytes", ErrProtocol, n)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read msgpack data: %w", err)
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal msgpack: %w", err)
	}
	return nil
}

// toDetection converts a wire detection. Masks whose buffer does not match
// their declared size are rejected.
func (d wireDetection) toDetection() (ports.Detection, error) {
	det := ports.Detection{
		Box: image.Rect(
			int(math.Round(d.Box[0])), int(math.Round(d.Box[1])),
			int(math.Round(d.Box[2])), int(math.Round(d.Box[3])),
		),
		Confidence: d.Confidence,
		Label:      d.Label,
	}

	if len(d.Mask) == 0 && d.MaskWidth == 0 && d.MaskHeight == 0 {
		return det, nil
	}

	mask := &ports.Mask{Width: d.MaskWidth, Height: d.MaskHeight, Bits: d.Mask}
	if !mask.Valid() {
		return ports.Detection{}, fmt.Errorf("%w: mask %dx%d with %d bytes", ErrProtocol, d.MaskWidth, d.MaskHeight, len(d.Mask))
	}
	det.Mask = mask
	return det, nil
}
