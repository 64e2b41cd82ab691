package whisperx

// Config captures runtime settings for the whisperx transcriber.
type Config struct {
	// Binary is the whisperx executable (default "whisperx").
	Binary string
	// Model selects the whisper model when the request does not name one.
	Model string
	// WorkDir is where scratch output directories are created. Defaults to
	// the directory of the audio file being transcribed.
	WorkDir string
	// HFToken is the Hugging Face token passed to the diarization pipeline.
	// When empty, whisperx falls back to its own HF_TOKEN environment lookup.
	HFToken string
}

// Defaults for whisperx invocations.
const (
	DefaultBinary = "whisperx"
	DefaultModel  = "large-v2"

	batchSize    = "4"
	outputFormat = "json"
)
