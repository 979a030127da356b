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

// Package notifications describes committed index mutations and hands them
// to pluggable transports. Delivery is best effort: a failed publish is
// logged and never undoes or fails the mutation it announces.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/rs/zerolog/log"
)

type Mutation int

const (
	MutationInsert Mutation = iota
	MutationDelete
	MutationUpdate
)

func (m Mutation) String() string {
	switch m {
	case MutationInsert:
		return "insert"
	case MutationDelete:
		return "delete"
	case MutationUpdate:
		return "update"
	default:
		return fmt.Sprintf("mutation(%d)", int(m))
	}
}

type Subject int

const (
	SubjectFile Subject = iota
	SubjectDirectory
)

func (s Subject) String() string {
	if s == SubjectDirectory {
		return "directory"
	}
	return "file"
}

// Descriptor announces one logical mutation.
type Descriptor struct {
	Path      string             `json:"path"`
	UUID      string             `json:"uuid,omitempty"`
	MimeType  string             `json:"mimeType,omitempty"`
	OriginPID int                `json:"pid"`
	Mutation  Mutation           `json:"mutation"`
	Subject   Subject            `json:"subject"`
	MediaKind database.MediaKind `json:"mediaType"`
}

// Method is the dotted name transports filter and route on, for example
// "media.file.insert".
func (d Descriptor) Method() string {
	return "media." + d.Subject.String() + "." + d.Mutation.String()
}

// Describe builds the file descriptor for a media record.
func Describe(rec *database.MediaRecord, m Mutation, originPID int) Descriptor {
	return Descriptor{
		OriginPID: originPID,
		Mutation:  m,
		Subject:   SubjectFile,
		Path:      rec.Path,
		UUID:      rec.UUID,
		MediaKind: rec.Kind,
		MimeType:  rec.MimeType,
	}
}

// DescribeDirectory builds a directory descriptor, used by folder renames.
func DescribeDirectory(dirPath string, m Mutation, originPID int) Descriptor {
	return Descriptor{
		OriginPID: originPID,
		Mutation:  m,
		Subject:   SubjectDirectory,
		Path:      dirPath,
		MediaKind: database.MediaOther,
	}
}

type Publisher interface {
	Publish(ctx context.Context, d Descriptor) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, d Descriptor) error

func (f PublisherFunc) Publish(ctx context.Context, d Descriptor) error {
	return f(ctx, d)
}

// Discard drops every descriptor.
var Discard Publisher = PublisherFunc(func(context.Context, Descriptor) error { return nil })

var ErrChannelFull = errors.New("notification channel full")

// ChannelPublisher forwards descriptors to a channel without ever blocking
// the mutating caller.
type ChannelPublisher struct {
	ch chan<- Descriptor
}

func NewChannelPublisher(ch chan<- Descriptor) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(_ context.Context, d Descriptor) error {
	select {
	case p.ch <- d:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s for %s", ErrChannelFull, d.Method(), d.Path)
	}
}

// MultiPublisher fans out to every publisher and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, d Descriptor) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishNow sends one descriptor and logs a failure instead of returning it.
func PublishNow(ctx context.Context, pub Publisher, d Descriptor) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, d); err != nil {
		log.Warn().Err(err).
			Str("method", d.Method()).
			Str("path", d.Path).
			Msg("failed to publish notification")
	}
}
