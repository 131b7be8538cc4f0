package scene

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Frame payload encodings
const (
	EncodingJSON   = "json"
	EncodingBinary = "binary"
)

// binaryMagic prefixes every binary frame
var binaryMagic = [4]byte{'P', 'B', 'X', '1'}

// PointStep is the byte size of one point in a binary frame (3 x float32)
const PointStep = 12

// FrameHeader carries frame metadata on the wire
type FrameHeader struct {
	Seq     uint64 `json:"seq"`
	Stamp   int64  `json:"stamp"` // unix nanoseconds
	FrameID string `json:"frameId"`
	RunID   string `json:"runId,omitempty"`
	Width   int    `json:"width"`
}

// FrameMessage is the JSON frame payload
type FrameMessage struct {
	Header FrameHeader  `json:"header"`
	Points [][3]float64 `json:"points"`
}

// EncodeFrame serializes a frame for transport
func EncodeFrame(pc *PointCloud, encoding, runID string) ([]byte, error) {
	header := FrameHeader{
		Seq:     pc.Seq,
		Stamp:   pc.Stamp.UnixNano(),
		FrameID: pc.FrameID,
		RunID:   runID,
		Width:   pc.Len(),
	}

	switch encoding {
	case EncodingJSON, "":
		msg := FrameMessage{Header: header, Points: make([][3]float64, pc.Len())}
		for i, p := range pc.Points {
			msg.Points[i] = [3]float64{p.X, p.Y, p.Z}
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("marshaling frame: %w", err)
		}
		return data, nil
	case EncodingBinary:
		return encodeBinary(header, pc.Points)
	default:
		return nil, fmt.Errorf("unknown frame encoding %q", encoding)
	}
}

// DecodeFrame parses a payload produced by EncodeFrame. It returns the cloud
// and the run ID recorded in the header.
func DecodeFrame(data []byte, encoding string) (*PointCloud, string, error) {
	switch encoding {
	case EncodingJSON, "":
		var msg FrameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, "", fmt.Errorf("unmarshaling frame: %w", err)
		}
		if msg.Header.Width != len(msg.Points) {
			return nil, "", fmt.Errorf("frame width %d does not match %d points", msg.Header.Width, len(msg.Points))
		}
		pc := cloudFromHeader(msg.Header)
		for _, p := range msg.Points {
			pc.Append(Point{X: p[0], Y: p[1], Z: p[2]})
		}
		return pc, msg.Header.RunID, nil
	case EncodingBinary:
		return decodeBinary(data)
	default:
		return nil, "", fmt.Errorf("unknown frame encoding %q", encoding)
	}
}

func cloudFromHeader(h FrameHeader) *PointCloud {
	pc := NewPointCloud(h.FrameID, h.Width)
	pc.Seq = h.Seq
	pc.Stamp = time.Unix(0, h.Stamp)
	return pc
}

// encodeBinary writes: magic, seq, stamp, width, frameID, runID, then
// little-endian float32 x, y, z per point
func encodeBinary(h FrameHeader, points []Point) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 + len(points)*PointStep)

	buf.Write(binaryMagic[:])
	fixed := []any{h.Seq, h.Stamp, uint32(h.Width)}
	for _, v := range fixed {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("writing frame header: %w", err)
		}
	}
	for _, s := range []string{h.FrameID, h.RunID} {
		if len(s) > math.MaxUint16 {
			return nil, fmt.Errorf("header string too long: %d bytes", len(s))
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint16(len(s))); err != nil {
			return nil, fmt.Errorf("writing frame header: %w", err)
		}
		buf.WriteString(s)
	}

	var pt [PointStep]byte
	for _, p := range points {
		binary.LittleEndian.PutUint32(pt[0:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(pt[4:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(pt[8:], math.Float32bits(float32(p.Z)))
		buf.Write(pt[:])
	}
	return buf.Bytes(), nil
}

func decodeBinary(data []byte) (*PointCloud, string, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != binaryMagic {
		return nil, "", errors.New("not a binary frame")
	}

	var h FrameHeader
	var width uint32
	for _, v := range []any{&h.Seq, &h.Stamp, &width} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, "", fmt.Errorf("reading frame header: %w", err)
		}
	}
	h.Width = int(width)

	strs := make([]string, 2)
	for i := range strs {
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, "", fmt.Errorf("reading frame header: %w", err)
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, "", fmt.Errorf("reading frame header: %w", err)
		}
		strs[i] = string(b)
	}
	h.FrameID, h.RunID = strs[0], strs[1]

	if r.Len() != h.Width*PointStep {
		return nil, "", fmt.Errorf("frame body is %d bytes, want %d", r.Len(), h.Width*PointStep)
	}

	pc := cloudFromHeader(h)
	var pt [PointStep]byte
	for i := 0; i < h.Width; i++ {
		if _, err := io.ReadFull(r, pt[:]); err != nil {
			return nil, "", fmt.Errorf("reading point %d: %w", i, err)
		}
		pc.Append(Point{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(pt[0:]))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(pt[4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(pt[8:]))),
		})
	}
	return pc, h.RunID, nil
}
