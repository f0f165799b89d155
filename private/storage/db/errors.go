// Copyright 2026 The ocppnode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package db

import (
	"errors"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

// Error classes of the persistent stores. Callers test for them with
// errors.Is; the concrete cause stays available through errors.As.
var (
	ErrInvalidInputData = errors.New("db: input data invalid")
	ErrDataInvalid      = errors.New("db: db data invalid")
	ErrReadFailed       = errors.New("db: read failed")
	ErrWriteFailed      = errors.New("db: write failed")
)

func classify(class error, msg string, cause error, errCtx []any) error {
	return serrors.JoinNoStack(class, cause, append([]any{"detailMsg", msg}, errCtx...)...)
}

// NewInputDataError reports input that was rejected before touching the DB.
func NewInputDataError(msg string, err error, errCtx ...any) error {
	return classify(ErrInvalidInputData, msg, err, errCtx)
}

// NewDataError reports data in the DB that cannot be used.
func NewDataError(msg string, err error, errCtx ...any) error {
	return classify(ErrDataInvalid, msg, err, errCtx)
}

func NewReadError(msg string, err error, errCtx ...any) error {
	return classify(ErrReadFailed, msg, err, errCtx)
}

func NewWriteError(msg string, err error, errCtx ...any) error {
	return classify(ErrWriteFailed, msg, err, errCtx)
}
