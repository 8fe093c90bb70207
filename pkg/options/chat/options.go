// Package chat provides configuration options for the retrieval and answer pipeline.
package chat

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/docchat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Retrieval strategies.
const (
	// StrategyAuto ranks with dense vectors and falls back to the lexical
	// scorer when the dense ranking comes back empty.
	StrategyAuto = "auto"
	// StrategyDense ranks with cosine similarity over stored embeddings only.
	StrategyDense = "dense"
	// StrategyLexical ranks with the keyword heuristic only.
	StrategyLexical = "lexical"
)

// Options configures chunking, retrieval, context assembly, and answer
// acceptance.
type Options struct {
	// ChunkSize is the sliding window width in words.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the number of words shared by consecutive chunks.
	// Must be strictly smaller than ChunkSize or the window never advances.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// Strategy selects the retrieval strategy (auto|dense|lexical).
	Strategy string `json:"strategy" mapstructure:"strategy"`

	// TopK is the number of ranked chunks requested from the scorer.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MaxContextChunks bounds how many ranked chunks enter the prompt.
	MaxContextChunks int `json:"max-context-chunks" mapstructure:"max-context-chunks"`

	// HistoryLimit is how many recent messages are fetched per turn.
	HistoryLimit int `json:"history-limit" mapstructure:"history-limit"`

	// MinAnswerChars rejects completions at or below this cleaned length.
	MinAnswerChars int `json:"min-answer-chars" mapstructure:"min-answer-chars"`

	// MaxFileSize bounds uploads, in bytes.
	MaxFileSize int64 `json:"max-file-size" mapstructure:"max-file-size"`

	// UploadDir is where uploaded files are stored.
	UploadDir string `json:"upload-dir" mapstructure:"upload-dir"`

	// WatchUploads enables the filesystem watcher that auto-ingests files
	// dropped into UploadDir.
	WatchUploads bool `json:"watch-uploads" mapstructure:"watch-uploads"`

	// EmbedWorkers is the worker pool size for batch embedding at ingestion.
	EmbedWorkers int `json:"embed-workers" mapstructure:"embed-workers"`
}

// NewOptions creates default chat pipeline options.
func NewOptions() *Options {
	return &Options{
		ChunkSize:        512,
		ChunkOverlap:     50,
		Strategy:         StrategyAuto,
		TopK:             5,
		MaxContextChunks: 5,
		HistoryLimit:     10,
		MinAnswerChars:   10,
		MaxFileSize:      10 * 1024 * 1024,
		UploadDir:        "./uploads",
		WatchUploads:     false,
		EmbedWorkers:     4,
	}
}

// AddFlags adds flags for chat options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.IntVar(&o.ChunkSize, join+"chat.chunk-size", o.ChunkSize, "Chunk window size in words.")
	fs.IntVar(&o.ChunkOverlap, join+"chat.chunk-overlap", o.ChunkOverlap, "Word overlap between consecutive chunks.")
	fs.StringVar(&o.Strategy, join+"chat.strategy", o.Strategy, "Retrieval strategy (auto|dense|lexical).")
	fs.IntVar(&o.TopK, join+"chat.top-k", o.TopK, "Number of chunks requested from the scorer.")
	fs.IntVar(&o.MaxContextChunks, join+"chat.max-context-chunks", o.MaxContextChunks, "Maximum chunks assembled into the prompt context.")
	fs.IntVar(&o.HistoryLimit, join+"chat.history-limit", o.HistoryLimit, "Recent messages fetched per turn.")
	fs.IntVar(&o.MinAnswerChars, join+"chat.min-answer-chars", o.MinAnswerChars, "Minimum cleaned completion length to accept.")
	fs.Int64Var(&o.MaxFileSize, join+"chat.max-file-size", o.MaxFileSize, "Maximum upload size in bytes.")
	fs.StringVar(&o.UploadDir, join+"chat.upload-dir", o.UploadDir, "Directory where uploads are stored.")
	fs.BoolVar(&o.WatchUploads, join+"chat.watch-uploads", o.WatchUploads, "Auto-ingest files dropped into the upload directory.")
	fs.IntVar(&o.EmbedWorkers, join+"chat.embed-workers", o.EmbedWorkers, "Worker pool size for batch embedding.")
}

// Validate checks the pipeline configuration.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chat.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("chat.chunk-overlap cannot be negative"))
	}
	if o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chat.chunk-overlap (%d) must be smaller than chat.chunk-size (%d)", o.ChunkOverlap, o.ChunkSize))
	}
	switch o.Strategy {
	case StrategyAuto, StrategyDense, StrategyLexical:
	default:
		errs = append(errs, fmt.Errorf("chat.strategy must be one of auto|dense|lexical, got %q", o.Strategy))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("chat.top-k must be positive"))
	}
	if o.MaxContextChunks <= 0 {
		errs = append(errs, fmt.Errorf("chat.max-context-chunks must be positive"))
	}
	if o.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("chat.history-limit cannot be negative"))
	}
	if o.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("chat.max-file-size must be positive"))
	}
	if o.EmbedWorkers <= 0 {
		errs = append(errs, fmt.Errorf("chat.embed-workers must be positive"))
	}
	return errs
}
