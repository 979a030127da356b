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

package mocks

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/stretchr/testify/mock"
)

// MockExtractor is a mock implementation of metadata.Extractor using
// testify/mock.
type MockExtractor struct {
	mock.Mock
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (m *MockExtractor) DetectMIME(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	if err := args.Error(1); err != nil {
		return "", fmt.Errorf("mock operation failed: %w", err)
	}
	return args.String(0), nil
}

func (m *MockExtractor) Extract(
	ctx context.Context,
	path string,
	kind database.MediaKind,
) (database.Metadata, error) {
	args := m.Called(ctx, path, kind)
	if err := args.Error(1); err != nil {
		return database.Metadata{}, fmt.Errorf("mock operation failed: %w", err)
	}
	if meta, ok := args.Get(0).(database.Metadata); ok {
		return meta, nil
	}
	return database.UnknownMetadata(), nil
}

// StubExtractor returns the same MIME type and unknown metadata for every
// file. Tests that do not care about extraction use it instead of setting
// up expectations.
type StubExtractor struct {
	MIME string
}

func (s StubExtractor) DetectMIME(context.Context, string) (string, error) {
	return s.MIME, nil
}

func (StubExtractor) Extract(context.Context, string, database.MediaKind) (database.Metadata, error) {
	return database.UnknownMetadata(), nil
}
