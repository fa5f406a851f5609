// Package capture writes rendered frames to disk, either as a numbered PNG
// sequence or as a single MJPEG AVI.
package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/icza/mjpeg"
	"github.com/nvandessel/mycelium/internal/constants"
)

// Output formats.
const (
	FormatPNG   = "png"
	FormatMJPEG = "mjpeg"
)

// Sink receives frames for one capture session.
type Sink interface {
	// WriteFrame appends one frame.
	WriteFrame(img image.Image) error

	// Target is the directory or file the session writes to.
	Target() string

	// Frames is the number of frames written so far.
	Frames() int

	// Close finishes the session.
	Close() error
}

// Options configures a capture session.
type Options struct {
	Format  string
	Dir     string
	Width   int
	Height  int
	FPS     int
	Quality int
	Now     time.Time
}

// New opens a sink of the requested format under opts.Dir. The session is
// named after opts.Now (or the current time when zero).
func New(opts Options) (Sink, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	name := opts.Now.Format(constants.CaptureDirTimeFormat)

	switch opts.Format {
	case "", FormatPNG:
		return NewPNGSequence(filepath.Join(opts.Dir, name))
	case FormatMJPEG:
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("creating capture dir: %w", err)
		}
		return NewMJPEGWriter(filepath.Join(opts.Dir, name+".avi"), opts.Width, opts.Height, opts.FPS, opts.Quality)
	default:
		return nil, fmt.Errorf("unknown capture format %q (want %s or %s)", opts.Format, FormatPNG, FormatMJPEG)
	}
}

// PNGSequence writes each frame as dir/NNNNN.png.
type PNGSequence struct {
	dir    string
	frames int
	enc    png.Encoder
}

// NewPNGSequence creates dir and returns a sink writing into it.
func NewPNGSequence(dir string) (*PNGSequence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating capture dir: %w", err)
	}
	return &PNGSequence{dir: dir, enc: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

// FramePath returns the path of frame n in the sequence.
func (s *PNGSequence) FramePath(n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%05d.png", n))
}

func (s *PNGSequence) WriteFrame(img image.Image) error {
	path := s.FramePath(s.frames)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating frame file: %w", err)
	}
	if err := s.enc.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding frame %d: %w", s.frames, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing frame %d: %w", s.frames, err)
	}
	s.frames++
	return nil
}

func (s *PNGSequence) Target() string { return s.dir }
func (s *PNGSequence) Frames() int    { return s.frames }
func (s *PNGSequence) Close() error   { return nil }

// MJPEGWriter encodes frames as JPEG into an AVI container.
type MJPEGWriter struct {
	path    string
	aw      mjpeg.AviWriter
	quality int
	frames  int
	buf     bytes.Buffer
}

// NewMJPEGWriter creates the AVI file at path. Non-positive fps and quality
// fall back to the defaults.
func NewMJPEGWriter(path string, width, height, fps, quality int) (*MJPEGWriter, error) {
	if fps <= 0 {
		fps = constants.DefaultCaptureFPS
	}
	if quality <= 0 || quality > 100 {
		quality = constants.DefaultJPEGQuality
	}
	aw, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, fmt.Errorf("creating mjpeg writer: %w", err)
	}
	return &MJPEGWriter{path: path, aw: aw, quality: quality}, nil
}

func (w *MJPEGWriter) WriteFrame(img image.Image) error {
	w.buf.Reset()
	if err := jpeg.Encode(&w.buf, img, &jpeg.Options{Quality: w.quality}); err != nil {
		return fmt.Errorf("encoding frame %d: %w", w.frames, err)
	}
	if err := w.aw.AddFrame(w.buf.Bytes()); err != nil {
		return fmt.Errorf("adding frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

func (w *MJPEGWriter) Target() string { return w.path }
func (w *MJPEGWriter) Frames() int    { return w.frames }

func (w *MJPEGWriter) Close() error {
	if err := w.aw.Close(); err != nil {
		return fmt.Errorf("closing mjpeg writer: %w", err)
	}
	return nil
}

var (
	_ Sink = (*PNGSequence)(nil)
	_ Sink = (*MJPEGWriter)(nil)
)
