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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type recorder struct {
	failOn map[string]bool
	got    []Descriptor
}

func (r *recorder) Publish(_ context.Context, d Descriptor) error {
	if r.failOn[d.Path] {
		return errors.New("transport failure")
	}
	r.got = append(r.got, d)
	return nil
}

func TestCorrelator_ReleaseInStagingOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c := NewCorrelator(rec, 3)

	c.Stage(Descriptor{Path: "/m/1.jpg"})
	c.Stage(Descriptor{Path: "/m/2.jpg"})
	c.Stage(Descriptor{Path: "/m/3.jpg"})
	assert.Equal(t, 3, c.Pending())
	assert.Empty(t, rec.got, "nothing goes out before release")

	c.Release(context.Background())

	require.Len(t, rec.got, 3)
	assert.Equal(t, "/m/1.jpg", rec.got[0].Path)
	assert.Equal(t, "/m/3.jpg", rec.got[2].Path)
	assert.Zero(t, c.Pending())
}

func TestCorrelator_DiscardPublishesNothing(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	c := NewCorrelator(rec, 2)
	c.Stage(Descriptor{Path: "/m/1.jpg"})
	c.Stage(Descriptor{Path: "/m/2.jpg"})

	c.Discard()
	c.Release(context.Background())

	assert.Empty(t, rec.got)
}

func TestCorrelator_FailedPublishDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	rec := &recorder{failOn: map[string]bool{"/m/2.jpg": true}}
	c := NewCorrelator(rec, 3)
	for i := 1; i <= 3; i++ {
		c.Stage(Descriptor{Path: fmt.Sprintf("/m/%d.jpg", i)})
	}

	c.Release(context.Background())

	require.Len(t, rec.got, 2)
	assert.Equal(t, "/m/1.jpg", rec.got[0].Path)
	assert.Equal(t, "/m/3.jpg", rec.got[1].Path)
}

func TestPropertyCorrelatorPreservesOrder(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 20).Draw(t, "capacity")
		rounds := rapid.IntRange(1, 5).Draw(t, "rounds")

		rec := &recorder{}
		c := NewCorrelator(rec, capacity)
		var want []string

		for r := range rounds {
			n := rapid.IntRange(0, capacity).Draw(t, "n")
			commit := rapid.Bool().Draw(t, "commit")
			var staged []string
			for i := range n {
				p := fmt.Sprintf("/m/%d/%d", r, i)
				c.Stage(Descriptor{Path: p})
				staged = append(staged, p)
			}
			if commit {
				c.Release(context.Background())
				want = append(want, staged...)
			} else {
				c.Discard()
			}
		}

		if len(rec.got) != len(want) {
			t.Fatalf("published %d, want %d", len(rec.got), len(want))
		}
		for i := range want {
			if rec.got[i].Path != want[i] {
				t.Fatalf("position %d: got %s want %s", i, rec.got[i].Path, want[i])
			}
		}
	})
}
