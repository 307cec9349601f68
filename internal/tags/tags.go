// Package tags reads embedded metadata from audio files.
package tags

import (
	"errors"
	"fmt"

	"go.senan.xyz/taglib"
)

// ErrUnreadable reports a file whose tag container could not be opened at
// all. Missing individual fields are not errors.
var ErrUnreadable = errors.New("unreadable tag container")

// Data is the tag-reader result for one file. Title and Artist are empty
// when the container carries no such frame; Duration is zero when the
// properties could not be read; Cover is nil when no art is embedded.
type Data struct {
	Title           string
	Artist          string
	DurationSeconds float64
	Cover           []byte
}

// Reader reads tags via taglib. taglib resolves the container variant
// (ID3, MP4 atoms, Vorbis comments) once at open time and exposes uniform
// keys, so callers never branch on file type.
type Reader struct{}

// NewReader returns a tag reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read extracts title, artist, duration and embedded cover art from path.
// Only a completely unreadable container fails; absent fields come back as
// zero values.
func (r *Reader) Read(path string) (Data, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return Data{}, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	var data Data
	data.Title = firstTag(raw, taglib.Title)
	data.Artist = firstTag(raw, taglib.Artist)

	if props, err := taglib.ReadProperties(path); err == nil {
		data.DurationSeconds = props.Length.Seconds()
	}

	// No embedded art is the common case; ignore the error.
	if img, err := taglib.ReadImage(path); err == nil {
		data.Cover = img
	}

	return data, nil
}

func firstTag(tags map[string][]string, key string) string {
	if vals, ok := tags[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}
