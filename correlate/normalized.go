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


// Package correlate implements the statistics used to compare a needle
// waveform against every offset of a haystack.
package correlate

import (
	"math"
	"math/cmplx"
)

// Undefined is the score of a comparison whose statistic does not exist,
// either because one of the inputs is constant or too short.
var Undefined = complex(math.NaN(), math.NaN())

// IsUndefined reports whether z is the Undefined score.
func IsUndefined(z complex128) bool {
	return cmplx.IsNaN(z)
}

// Normalized returns the normalized cross-correlation of a and b, both
// clipped to the shorter length n:
//
//	(Σ a·conj(b) - n·mean(a)·conj(mean(b))) / ((n-1)·std(a)·std(b))
//
// where std is the sample standard deviation of the complex values. A
// sequence correlated with itself scores exactly 1.
func Normalized(a, b []complex64) complex128 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return NewTemplate(b[:n]).Score(a[:n])
}

// Template holds a needle with its mean removed so repeated scoring against
// many haystack offsets only touches the haystack once per offset.
type Template struct {
	needle   []complex64
	centered []complex128
	energy   float64
}

func NewTemplate(needle []complex64) *Template {
	t := &Template{
		needle:   needle,
		centered: make([]complex128, len(needle)),
	}

	m := mean(needle)
	for idx, v := range needle {
		c := complex128(v) - m
		t.centered[idx] = c
		t.energy += real(c)*real(c) + imag(c)*imag(c)
	}

	return t
}

func (t *Template) Len() int { return len(t.needle) }

// Score correlates the template against the first Len() samples of a. If a
// is shorter than the template both are clipped to len(a).
func (t *Template) Score(a []complex64) complex128 {
	if len(a) < len(t.needle) {
		return Normalized(a, t.needle)
	}
	a = a[:len(t.needle)]

	if len(a) < 2 {
		return Undefined
	}

	ma := mean(a)

	var num complex128
	var energy float64
	for idx, v := range a {
		c := complex128(v) - ma
		num += c * cmplx.Conj(t.centered[idx])
		energy += real(c)*real(c) + imag(c)*imag(c)
	}

	den := math.Sqrt(energy * t.energy)
	if den == 0 || math.IsNaN(den) {
		return Undefined
	}

	return num / complex(den, 0)
}

func mean(s []complex64) complex128 {
	if len(s) == 0 {
		return 0
	}

	var sum complex128
	for _, v := range s {
		sum += complex128(v)
	}
	return sum / complex(float64(len(s)), 0)
}
