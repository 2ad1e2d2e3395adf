// Package audio prepares audio for inline requests: it sniffs the format of
// raw bytes and converts MP3 to WAV.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	"github.com/h2non/filetype"

	"github.com/xkilldash9x/codevolver/api/schemas"
)

const (
	MIMEWav  = "audio/wav"
	MIMEMP3  = "audio/mpeg"
	MIMEOgg  = "audio/ogg"
	MIMEFlac = "audio/flac"
	MIMEAiff = "audio/aiff"
	MIMEAac  = "audio/aac"
)

// ErrUnsupported is returned for data that is not a known audio format.
var ErrUnsupported = errors.New("unsupported audio format")

// sniffed MIME values are normalized to the names the model accepts.
var normalized = map[string]string{
	"audio/x-wav":  MIMEWav,
	"audio/wav":    MIMEWav,
	"audio/mpeg":   MIMEMP3,
	"audio/ogg":    MIMEOgg,
	"audio/x-flac": MIMEFlac,
	"audio/flac":   MIMEFlac,
	"audio/x-aiff": MIMEAiff,
	"audio/aiff":   MIMEAiff,
	"audio/aac":    MIMEAac,
	"audio/x-aac":  MIMEAac,
}

// Sniff returns the audio MIME type of data.
func Sniff(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}
	if kind == filetype.Unknown {
		return "", fmt.Errorf("%w: unrecognized data", ErrUnsupported)
	}
	mime, ok := normalized[kind.MIME.Value]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, kind.MIME.Value)
	}
	return mime, nil
}

// Info describes decoded audio.
type Info struct {
	MIME     string
	Format   beep.Format
	Duration time.Duration
}

// Inspect decodes WAV or MP3 headers to report format and duration.
func Inspect(data []byte) (Info, error) {
	mime, err := Sniff(data)
	if err != nil {
		return Info{}, err
	}
	s, format, err := decode(mime, data)
	if err != nil {
		return Info{MIME: mime}, err
	}
	defer s.Close()
	return Info{MIME: mime, Format: format, Duration: format.SampleRate.D(s.Len())}, nil
}

func decode(mime string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch mime {
	case MIMEWav:
		s, format, err = wav.Decode(bytes.NewReader(data))
	case MIMEMP3:
		s, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: cannot decode %s", ErrUnsupported, mime)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", mime, err)
	}
	return s, format, nil
}

// ToWAV returns data as WAV. WAV input is returned unchanged.
func ToWAV(data []byte) ([]byte, error) {
	mime, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	if mime == MIMEWav {
		return data, nil
	}
	s, format, err := decode(mime, data)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return EncodeWAV(s, format)
}

// EncodeWAV renders a stream to WAV bytes. The encoder needs to seek back
// to patch the header, so it goes through a temp file.
func EncodeWAV(s beep.Streamer, format beep.Format) ([]byte, error) {
	tmp, err := os.CreateTemp("", "codevolver-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := wav.Encode(tmp, s, format); err != nil {
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(tmp)
}

// Blob builds an inline part for a model request. MP3 is converted to WAV;
// other formats the model accepts pass through.
func Blob(data []byte) (schemas.Blob, error) {
	mime, err := Sniff(data)
	if err != nil {
		return schemas.Blob{}, err
	}
	if mime == MIMEMP3 {
		wavData, err := ToWAV(data)
		if err != nil {
			return schemas.Blob{}, err
		}
		return schemas.Blob{MIMEType: MIMEWav, Data: wavData}, nil
	}
	return schemas.Blob{MIMEType: mime, Data: data}, nil
}
