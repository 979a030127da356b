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

package mediasvc

import (
	"crypto/md5" //nolint:gosec // name derivation, not security
	"encoding/hex"
	"fmt"
	"path"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/helpers"
)

// StorageRoots maps a path to the storage it lives on.
type StorageRoots struct {
	Internal string
	External string
}

func (r StorageRoots) Origin(p string) (database.StorageOrigin, error) {
	switch {
	case r.Internal != "" && helpers.HasPathPrefix(p, r.Internal):
		return database.StorageInternal, nil
	case r.External != "" && helpers.HasPathPrefix(p, r.External):
		return database.StorageExternal, nil
	default:
		return 0, fmt.Errorf("%w: %s is outside every storage root", database.ErrInvalidArgument, p)
	}
}

// ThumbnailLayout derives where an item's thumbnail file lives. Each
// storage has its own directory under Root; Default is the shared image.
type ThumbnailLayout struct {
	Root    string
	Default string
}

func (l ThumbnailLayout) Dir(storage database.StorageOrigin) string {
	if storage == database.StorageExternal {
		return path.Join(l.Root, "mmc")
	}
	return path.Join(l.Root, "phone")
}

// PathFor is <root>/<phone|mmc>/.<ext>-<md5 of media path>.jpg. The name
// depends only on the media path, so moving an item moves its thumbnail.
func (l ThumbnailLayout) PathFor(storage database.StorageOrigin, mediaPath string) string {
	sum := md5.Sum([]byte(mediaPath)) //nolint:gosec // see import
	name := "." + helpers.FileExt(mediaPath) + "-" + hex.EncodeToString(sum[:]) + ".jpg"
	return path.Join(l.Dir(storage), name)
}

func (l ThumbnailLayout) Codec() database.ThumbnailCodec {
	return database.ThumbnailCodec{DefaultPath: l.Default}
}
