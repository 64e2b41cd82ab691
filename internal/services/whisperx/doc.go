// Package whisperx is the default transcription collaborator. It shells out
// to the whisperx CLI, pointing it at a scratch output directory, and parses
// the segment JSON it produces into the shared transcript model.
//
// Speaker diarization is requested per transcription via the speaker-labels
// flag; word-level timing and confidence scores are carried through when the
// tool emits them.
package whisperx
