package audio

import (
	"encoding/binary"
	"fmt"
)

// DecodeWAV parses a RIFF/WAVE payload containing 16-bit PCM and
// returns a mono Clip. Multi-channel audio is downmixed by averaging.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("wav: payload too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: missing RIFF/WAVE header")
	}

	var (
		sampleRate    int
		numChannels   int
		bitsPerSample int
		pcm           []byte
		haveFmt       bool
	)

	// Walk the chunk list. Chunks are word-aligned.
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("wav: fmt chunk too short (%d bytes)", chunkSize)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("wav: unsupported format code %d (want PCM)", format)
			}
			numChannels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("wav: missing fmt chunk")
	}
	if pcm == nil {
		return nil, fmt.Errorf("wav: missing data chunk")
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("wav: unsupported bit depth %d (want 16)", bitsPerSample)
	}
	if numChannels < 1 {
		return nil, fmt.Errorf("wav: invalid channel count %d", numChannels)
	}
	if sampleRate < 1 {
		return nil, fmt.Errorf("wav: invalid sample rate %d", sampleRate)
	}

	frameSize := 2 * numChannels
	numFrames := len(pcm) / frameSize
	samples := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		sum := 0.0
		for ch := 0; ch < numChannels; ch++ {
			off := i*frameSize + ch*2
			s := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			sum += float64(s) / 32768.0
		}
		samples[i] = sum / float64(numChannels)
	}

	return &Clip{Samples: samples, SampleRate: sampleRate}, nil
}

// EncodeWAV serializes mono float64 samples as a 16-bit PCM WAV file.
// Samples outside [-1, 1] are clipped.
func EncodeWAV(samples []float64, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(int16(s*32767)))
	}
	return buf
}
