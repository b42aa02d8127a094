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


/*
IQCORR locates known waveforms and recurring reference ticks in recordings of
complex I/Q samples.

Inputs are either 16-bit stereo PCM WAV files, in-phase on the left channel
and quadrature on the right, or headerless files of little-endian complex64
samples as written by the convert command. Files beginning with a RIFF header
are treated as WAV, anything else as packed samples.

Usage:

	iqcorr [flags] <command> [args]

	iqcorr dump [-o OFFSET] [-f FRAMES] FILE
	iqcorr find [-o OFFSET] [-f FRAMES] [-t THRESHOLD] [-workers W] [-workload N] PATTERN FILE
	iqcorr findreftick [-o OFFSET] [-f FRAMES] [-period D] [-frames N] [-gap N] [-spf N] [-floor F] FILE
	iqcorr convert [-v] INFILE [OUTFILE]
	iqcorr synth [-periods N] [-spf N] [-noise F] OUTFILE
	iqcorr version

Every flag may also be set by an environment variable named IQCORR_ followed
by the flag name in upper case. Flags given on the command line take
precedence.

	-samplerate=0

Sample rate of packed input files. Accepts SI suffixes, ex. 2.4M. WAV files
declare their own rate. Inputs searched against each other must agree on
their sample rate if both declare one.

	-format="plain"

Result output format: plain, csv or json. CSV output begins with a header
row, JSON output is one object per line.

	-loglevel="info" and -logformat="text"

Log messages are written to stderr. Every message of a run carries the same
random run field.

	-b and -s

Accepted for compatibility and ignored.

dump prints the samples of FILE, one per line, formatted as (re+imj).

find correlates PATTERN against every offset of FILE and reports the offsets
whose normalized correlation has a real part strictly greater than the
threshold. Offsets are absolute, -o is included. The search is split into
tasks of -workload offsets which are distributed over -workers goroutines.

findreftick reduces FILE to frames of averaged in-phase magnitude, locates a
repeated high/low pulse in the frame profile and refines each pulse by halving
the frame length until its falling edge is located to a single sample.
Candidates whose refinement ran out of samples are reported with their last
estimate and the status "insufficient search range".

convert rewrites a WAV file as packed complex64 samples. OUTFILE defaults to
INFILE with a .iq suffix.

synth writes a synthetic reference tick signal, as WAV if OUTFILE ends in
.wav and packed otherwise.

Exit status is 0 on success, 1 on I/O or internal errors, 2 on usage errors,
3 on unsupported input files, 4 when interrupted and 5 when findreftick
completed with candidates that were not fully refined.
*/
package main
