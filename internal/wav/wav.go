// Package wav decodes and encodes the canonical audio containers the
// transcoder hands to the signal conditioner: a byte-level RIFF/WAVE
// reader adapted from Prayush09-MusicRecognition's fileformat/wav.go,
// extended to 8/16/24/32-bit PCM and float32 sample data, plus an mp3
// reader built on github.com/hajimehoshi/go-mp3 (the pack's other
// decoder, used the same way Prayush09's upload.go LoadMP3File does)
// since the transcoder's canonical output is mp3.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// Header mirrors the 44-byte canonical RIFF/WAVE header.
type Header struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BytesPerSec   uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

const (
	formatPCM   = 1
	formatFloat = 3
)

// Info is the decoded result of reading a WAV file: per-channel sample
// data already converted to float32 in [-1, 1], plus the container's
// sample rate and channel count.
type Info struct {
	Channels   int
	SampleRate int
	Samples    [][]float32 // Samples[c] is channel c's samples
	Duration   float64
}

// ReadFile reads a canonical WAV file from disk and returns decoded,
// per-channel float samples.
func ReadFile(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wav file: %w", err)
	}
	return Decode(data)
}

// Decode parses raw WAV container bytes. It tolerates extra chunks
// between "fmt " and "data" (e.g. "LIST") by scanning for the data chunk
// rather than assuming a fixed 44-byte header, since ffmpeg-produced
// files sometimes insert metadata chunks.
func Decode(data []byte) (*Info, error) {
	if len(data) < 44 {
		return nil, fmt.Errorf("wav: data too short to contain a header")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: not a RIFF/WAVE container")
	}

	var (
		audioFormat   uint16
		numChannels   uint16
		sampleRate    uint32
		bitsPerSample uint16
		dataBytes     []byte
		haveFmt       bool
	)

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8
		end := body + int(chunkSize)
		if end > len(data) {
			end = len(data)
		}

		switch chunkID {
		case "fmt ":
			if end-body < 16 {
				return nil, fmt.Errorf("wav: fmt chunk too short")
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			numChannels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			dataBytes = data[body:end]
		}

		pos = end
		if chunkSize%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("wav: missing fmt chunk")
	}
	if dataBytes == nil {
		return nil, fmt.Errorf("wav: missing data chunk")
	}
	if audioFormat != formatPCM && audioFormat != formatFloat {
		return nil, fmt.Errorf("wav: unsupported audio format %d", audioFormat)
	}
	if numChannels == 0 {
		return nil, fmt.Errorf("wav: zero channels")
	}

	samples, err := decodeSamples(dataBytes, int(numChannels), int(bitsPerSample), audioFormat == formatFloat)
	if err != nil {
		return nil, err
	}

	frames := 0
	if len(samples) > 0 {
		frames = len(samples[0])
	}

	return &Info{
		Channels:   int(numChannels),
		SampleRate: int(sampleRate),
		Samples:    samples,
		Duration:   float64(frames) / float64(sampleRate),
	}, nil
}

func decodeSamples(data []byte, channels, bitsPerSample int, isFloat bool) ([][]float32, error) {
	bytesPerSample := bitsPerSample / 8
	if bytesPerSample <= 0 {
		return nil, fmt.Errorf("wav: invalid bits per sample %d", bitsPerSample)
	}
	frameSize := bytesPerSample * channels
	if frameSize == 0 || len(data)%frameSize != 0 {
		data = data[:len(data)-(len(data)%frameSize)]
	}
	numFrames := len(data) / frameSize

	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, numFrames)
	}

	for f := 0; f < numFrames; f++ {
		base := f * frameSize
		for c := 0; c < channels; c++ {
			off := base + c*bytesPerSample
			var v float32
			switch {
			case isFloat && bitsPerSample == 32:
				bits := binary.LittleEndian.Uint32(data[off : off+4])
				v = math.Float32frombits(bits)
			case bitsPerSample == 8:
				// unsigned 8-bit PCM, midpoint 128
				v = (float32(data[off]) - 128) / 128
			case bitsPerSample == 16:
				s := int16(binary.LittleEndian.Uint16(data[off : off+2]))
				v = float32(s) / 32768
			case bitsPerSample == 24:
				b0, b1, b2 := data[off], data[off+1], data[off+2]
				raw := int32(b0) | int32(b1)<<8 | int32(b2)<<16
				if raw&0x800000 != 0 {
					raw |= -1 << 24 // sign-extend
				}
				v = float32(raw) / float32(1<<23)
			case bitsPerSample == 32:
				s := int32(binary.LittleEndian.Uint32(data[off : off+4]))
				v = float32(s) / float32(1<<31)
			default:
				return nil, fmt.Errorf("wav: unsupported bit depth %d", bitsPerSample)
			}
			out[c][f] = v
		}
	}
	return out, nil
}

// ReadMP3File decodes an mp3 file into the same per-channel Info shape
// ReadFile returns for WAV. go-mp3's Decoder always yields interleaved
// 16-bit little-endian stereo PCM regardless of the source's channel
// count, matching the raw Read-loop decode in Prayush09-MusicRecognition's
// upload.go LoadMP3File.
func ReadMP3File(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mp3 file: %w", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decode mp3 header: %w", err)
	}

	const chunkSize = 8192
	buf := make([]byte, chunkSize)
	left := make([]float32, 0, 1<<16)
	right := make([]float32, 0, 1<<16)
	var leftover []byte

	for {
		n, readErr := dec.Read(buf)
		data := append(leftover, buf[:n]...)

		usable := len(data) - len(data)%4
		for i := 0; i+3 < usable; i += 4 {
			l := int16(binary.LittleEndian.Uint16(data[i : i+2]))
			r := int16(binary.LittleEndian.Uint16(data[i+2 : i+4]))
			left = append(left, float32(l)/32768)
			right = append(right, float32(r)/32768)
		}
		leftover = append([]byte(nil), data[usable:]...)

		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode mp3 frame: %w", readErr)
		}
	}

	frames := len(left)
	return &Info{
		Channels:   2,
		SampleRate: dec.SampleRate(),
		Samples:    [][]float32{left, right},
		Duration:   float64(frames) / float64(dec.SampleRate()),
	}, nil
}

// WriteFile writes mono, 16-bit PCM WAV data, used by tests to
// materialize synthetic fixtures without shelling out to ffmpeg.
func WriteFile(path string, samples []float32, sampleRate int) error {
	buf := new(bytes.Buffer)
	dataSize := uint32(len(samples) * 2)

	header := Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		BytesPerSec:   uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	for _, s := range samples {
		v := s
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		if err := binary.Write(buf, binary.LittleEndian, int16(v*32767)); err != nil {
			return fmt.Errorf("write wav sample: %w", err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
