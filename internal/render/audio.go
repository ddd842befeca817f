package render

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

const (
	sampleRate    = 8000
	audioSeconds  = 1
	bitsPerSample = 16
	channels      = 1
)

// Audio synthesizes a short, deterministic PCM WAV tone for prompt. The
// tone's frequency is derived from the prompt's content hash so repeated
// renders of the same prompt are byte-identical.
func Audio(prompt string) ([]byte, error) {
	freq := 220.0 + float64(xxhash.Sum64String(prompt)%440)

	numSamples := sampleRate * audioSeconds
	samples := make([]int16, numSamples)

	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 0.3 * math.MaxInt16)
	}

	var buf bytes.Buffer

	dataSize := len(samples) * 2
	writeWAVHeader(&buf, sampleRate, channels, bitsPerSample, dataSize)

	for _, s := range samples {
		if err := binary.Write(&buf, binary.LittleEndian, s); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writeWAVHeader(buf *bytes.Buffer, sampleRate, channels, bitsPerSample, dataSize int) {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize))
}
