// Package testutil builds audio and image fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"sort"
)

// FLACOptions describes a minimal FLAC file: metadata blocks only, no frames
type FLACOptions struct {
	Comments    map[string]string // Vorbis comments, e.g. "ARTIST": "Radiohead"
	Picture     []byte            // optional front cover
	PictureMIME string
	SampleRate  int
	Samples     int64
}

// FLAC encodes opts as the header section of a FLAC stream
func FLAC(opts FLACOptions) []byte {
	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}

	var blocks [][]byte
	var types []byte

	types = append(types, 0)
	blocks = append(blocks, streamInfo(opts.SampleRate, opts.Samples))

	types = append(types, 4)
	blocks = append(blocks, vorbisComment(opts.Comments))

	if len(opts.Picture) > 0 {
		mime := opts.PictureMIME
		if mime == "" {
			mime = "image/png"
		}
		types = append(types, 6)
		blocks = append(blocks, pictureBlock(mime, opts.Picture))
	}

	var buf bytes.Buffer
	buf.WriteString("fLaC")
	for i, b := range blocks {
		header := types[i]
		if i == len(blocks)-1 {
			header |= 0x80
		}
		buf.WriteByte(header)
		buf.Write([]byte{byte(len(b) >> 16), byte(len(b) >> 8), byte(len(b))})
		buf.Write(b)
	}
	return buf.Bytes()
}

func streamInfo(sampleRate int, samples int64) []byte {
	b := make([]byte, 34)
	binary.BigEndian.PutUint16(b[0:], 4096)
	binary.BigEndian.PutUint16(b[2:], 4096)
	const channels, bitsPerSample = 2, 16
	packed := uint64(sampleRate)<<44 | uint64(channels-1)<<41 | uint64(bitsPerSample-1)<<36 | uint64(samples)
	binary.BigEndian.PutUint64(b[10:], packed)
	return b
}

func vorbisComment(comments map[string]string) []byte {
	keys := make([]string, 0, len(comments))
	for k := range comments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	vendor := "testutil"
	binary.Write(&buf, binary.LittleEndian, uint32(len(vendor)))
	buf.WriteString(vendor)
	binary.Write(&buf, binary.LittleEndian, uint32(len(keys)))
	for _, k := range keys {
		c := k + "=" + comments[k]
		binary.Write(&buf, binary.LittleEndian, uint32(len(c)))
		buf.WriteString(c)
	}
	return buf.Bytes()
}

func pictureBlock(mime string, data []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(3)) // front cover
	binary.Write(&buf, binary.BigEndian, uint32(len(mime)))
	buf.WriteString(mime)
	binary.Write(&buf, binary.BigEndian, uint32(0)) // description
	for i := 0; i < 4; i++ {
		binary.Write(&buf, binary.BigEndian, uint32(0)) // width, height, depth, colors
	}
	binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// PNG encodes a solid w x h image
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}
