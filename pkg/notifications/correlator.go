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

package notifications

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Correlator pairs staged mutations with the descriptors announcing them.
// Descriptors sit in slots until the transaction holding their mutations
// commits, then go out in staging order. It is owned by one batch session
// and is not safe for concurrent use.
type Correlator struct {
	pub   Publisher
	slots []Descriptor
}

// NewCorrelator preallocates capacity slots, normally the batch size.
func NewCorrelator(pub Publisher, capacity int) *Correlator {
	if capacity < 1 {
		capacity = 1
	}
	return &Correlator{
		pub:   pub,
		slots: make([]Descriptor, 0, capacity),
	}
}

// Stage records the descriptor for the mutation most recently queued.
func (c *Correlator) Stage(d Descriptor) {
	c.slots = append(c.slots, d)
}

func (c *Correlator) Pending() int {
	return len(c.slots)
}

// Release publishes every staged descriptor after a successful commit.
// Failures are logged per descriptor; the rest still go out.
func (c *Correlator) Release(ctx context.Context) {
	failed := 0
	for _, d := range c.slots {
		if err := c.pub.Publish(ctx, d); err != nil {
			failed++
			log.Warn().Err(err).
				Str("method", d.Method()).
				Str("path", d.Path).
				Msg("failed to publish notification")
		}
	}
	if failed > 0 {
		log.Error().
			Int("failed", failed).
			Int("total", len(c.slots)).
			Msg("some notifications were not delivered")
	}
	c.reset()
}

// Discard forgets staged descriptors, used when their flush failed.
func (c *Correlator) Discard() {
	if len(c.slots) > 0 {
		log.Debug().Int("count", len(c.slots)).Msg("discarding notifications of failed flush")
	}
	c.reset()
}

func (c *Correlator) reset() {
	clear(c.slots)
	c.slots = c.slots[:0]
}
