// Package ffmpeg converts media files into audio suitable for transcription.
//
// The Service strips video and data streams and transcodes the audio track
// to the configured format, bitrate, and sample rate. It implements the
// pipeline audio converter contract.
//
// A command runner seam allows tests to intercept the external invocation.
package ffmpeg
