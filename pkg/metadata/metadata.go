// Zaparoo Media Service
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Media Service.
//
// Zaparoo Media Service is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Media Service is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Media Service.  If not, see <http://www.gnu.org/licenses/>.

// Package metadata fills the descriptive columns of a media row from the
// file itself. Codecs are never implemented here; parsing is delegated to
// dhowden/tag for audio, imaging for pictures and mimetype for sniffing.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers"
	"github.com/dhowden/tag"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type Extractor interface {
	DetectMIME(ctx context.Context, path string) (string, error)
	Extract(ctx context.Context, path string, kind database.MediaKind) (database.Metadata, error)
}

// sound rather than music: short clips and voice recordings
var soundMimes = map[string]bool{
	"audio/wav":    true,
	"audio/x-wav":  true,
	"audio/wave":   true,
	"audio/amr":    true,
	"audio/x-amr":  true,
	"audio/midi":   true,
	"audio/x-midi": true,
	"audio/3gpp":   true,
}

// KindForMIME classifies a MIME type into a media kind.
func KindForMIME(mime string) database.MediaKind {
	mime = strings.ToLower(mime)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return database.MediaImage
	case strings.HasPrefix(mime, "video/"):
		return database.MediaVideo
	case soundMimes[mime]:
		return database.MediaSound
	case strings.HasPrefix(mime, "audio/"):
		return database.MediaMusic
	default:
		return database.MediaOther
	}
}

type FileExtractor struct {
	fs afero.Fs
}

func NewFileExtractor(fs afero.Fs) *FileExtractor {
	return &FileExtractor{fs: fs}
}

func (e *FileExtractor) open(path string) (afero.File, error) {
	f, err := e.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

func closeFile(f afero.File) {
	if err := f.Close(); err != nil {
		log.Warn().Err(err).Str("path", f.Name()).Msg("failed to close media file")
	}
}

// DetectMIME sniffs the content type from the file header.
func (e *FileExtractor) DetectMIME(_ context.Context, path string) (string, error) {
	f, err := e.open(path)
	if err != nil {
		return "", err
	}
	defer closeFile(f)

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to detect mime type of %s: %w", path, err)
	}
	mime, _, _ := strings.Cut(mt.String(), ";")
	return mime, nil
}

// Extract reads per-kind metadata. Files a parser cannot read still get a
// title from their name; only an unreadable file is an error.
func (e *FileExtractor) Extract(
	ctx context.Context,
	path string,
	kind database.MediaKind,
) (database.Metadata, error) {
	meta := database.UnknownMetadata()
	meta.Title = helpers.FileStem(helpers.DisplayName(path))

	if err := ctx.Err(); err != nil {
		return meta, fmt.Errorf("metadata extraction cancelled: %w", err)
	}

	switch kind {
	case database.MediaImage:
		return e.extractImage(path, meta)
	case database.MediaSound, database.MediaMusic:
		return e.extractAudio(path, meta)
	case database.MediaVideo, database.MediaOther:
		return meta, nil
	default:
		return meta, fmt.Errorf("%w: media kind %s", database.ErrInvalidArgument, kind)
	}
}

func (e *FileExtractor) extractImage(path string, meta database.Metadata) (database.Metadata, error) {
	f, err := e.open(path)
	if err != nil {
		return meta, err
	}
	defer closeFile(f)

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("image not decodable, dimensions unknown")
		return meta, nil
	}
	bounds := img.Bounds()
	meta.Width = bounds.Dx()
	meta.Height = bounds.Dy()
	// dimensions are reported after EXIF orientation has been applied
	meta.Orientation = 0
	return meta, nil
}

func (e *FileExtractor) extractAudio(path string, meta database.Metadata) (database.Metadata, error) {
	f, err := e.open(path)
	if err != nil {
		return meta, err
	}
	defer closeFile(f)

	m, err := tag.ReadFrom(f)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return meta, nil
	}
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("audio tags not readable")
		return meta, nil
	}

	if m.Title() != "" {
		meta.Title = m.Title()
	}
	meta.Album = m.Album()
	meta.Artist = m.Artist()
	meta.AlbumArtist = m.AlbumArtist()
	meta.Composer = m.Composer()
	meta.Genre = m.Genre()
	meta.Description = m.Comment()
	if year := m.Year(); year > 0 {
		meta.Year = strconv.Itoa(year)
	}
	if track, total := m.Track(); track > 0 {
		meta.TrackNum = strconv.Itoa(track)
		if total > 0 {
			meta.TrackNum += "/" + strconv.Itoa(total)
		}
	}
	return meta, nil
}
