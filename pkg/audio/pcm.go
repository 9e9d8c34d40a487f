// Package audio provides small helpers for the signed 16-bit little-endian
// mono PCM that flows through the ingestion pipeline.
package audio

import (
	"math"
	"time"
)

// Samples decodes little-endian int16 PCM bytes into samples. A trailing odd
// byte is ignored.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return out
}

// Float32 converts little-endian int16 PCM bytes to float32 samples
// normalised to [-1, 1].
func Float32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out
}

// RMS returns the root mean square of int16 PCM bytes on the int16 scale
// (0 … 32767). Returns 0 for empty input.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// RMSNormalized returns the RMS of int16 PCM bytes on the [0, 1] float scale.
func RMSNormalized(pcm []byte) float64 {
	return RMS(pcm) / 32768.0
}

// RMSFloat32 returns the RMS of normalised float32 samples.
func RMSFloat32(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Duration returns the play time of pcm at the given sample rate and width.
func Duration(pcmLen, sampleRate, bytesPerSample int) time.Duration {
	if sampleRate <= 0 || bytesPerSample <= 0 {
		return 0
	}
	samples := pcmLen / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
