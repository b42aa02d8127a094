// IQCORR - Locate known waveforms and reference ticks in I/Q sample streams.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.


package correlate

import "math"

// Rough slides needle across haystack and returns, for every start s in
// [0, len(haystack)-len(needle)], the ratio
//
//	Σ |haystack[s+i]|·needle[i] / sqrt(Σ haystack[s+i]² · Σ needle[i]²)
//
// Zero energy in either input scores NaN. The result is empty when the
// needle is empty or longer than the haystack.
func Rough(haystack, needle []float64) []float64 {
	length := len(haystack) - len(needle) + 1
	if len(needle) == 0 || length <= 0 {
		return nil
	}

	// Windowed energy is the difference of a pair of cumulative sums.
	csum := make([]float64, len(haystack)+1)
	var sum float64
	for idx, v := range haystack {
		sum += v * v
		csum[idx+1] = sum
	}

	var needleEnergy float64
	for _, v := range needle {
		needleEnergy += v * v
	}

	scores := make([]float64, length)
	for s := range scores {
		var cross float64
		for idx, v := range needle {
			cross += math.Abs(haystack[s+idx]) * v
		}

		energy := csum[s+len(needle)] - csum[s]
		if energy < 0 {
			energy = 0
		}

		norm := math.Sqrt(energy * needleEnergy)
		if norm == 0 {
			scores[s] = math.NaN()
			continue
		}
		scores[s] = cross / norm
	}

	return scores
}

// StepTemplate returns highLen samples of high followed by lowLen samples of
// low.
func StepTemplate(highLen, lowLen int, high, low float64) []float64 {
	t := make([]float64, highLen+lowLen)
	for idx := range t {
		if idx < highLen {
			t[idx] = high
		} else {
			t[idx] = low
		}
	}
	return t
}

// Reduce returns the mean absolute in-phase component of samples. The
// quadrature component does not contribute.
func Reduce(samples []complex64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}

	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(real(s)))
	}
	return sum / float64(len(samples))
}

// ReduceFrames reduces consecutive frames of samplesPerFrame samples. A
// trailing partial frame is dropped.
func ReduceFrames(samples []complex64, samplesPerFrame int) []float64 {
	if samplesPerFrame <= 0 {
		return nil
	}

	profile := make([]float64, len(samples)/samplesPerFrame)
	for idx := range profile {
		profile[idx] = Reduce(samples[idx*samplesPerFrame : (idx+1)*samplesPerFrame])
	}
	return profile
}

// ArgMax returns the index and value of the largest score, ignoring NaN. The
// first of several equal maxima wins. Index is -1 if there is no score.
func ArgMax(scores []float64) (int, float64) {
	best, bestScore := -1, math.NaN()
	for idx, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		if best == -1 || s > bestScore {
			best, bestScore = idx, s
		}
	}
	return best, bestScore
}
