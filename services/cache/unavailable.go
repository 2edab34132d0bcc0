// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import "context"

// Unavailable is a HotWindowStore that fails every call with
// ErrCacheUnavailable. It stands in when Redis is unreachable at startup,
// so the pipeline runs in the same degraded mode it uses for a mid-flight
// outage instead of needing nil checks.
type Unavailable struct{}

func (Unavailable) Append(context.Context, string, Message) (int, error) {
	return 0, ErrCacheUnavailable
}

func (Unavailable) Messages(context.Context, string, int) ([]Message, error) {
	return nil, ErrCacheUnavailable
}

func (Unavailable) Length(context.Context, string) (int, error) {
	return 0, ErrCacheUnavailable
}

func (Unavailable) TrimToTail(context.Context, string, int) (bool, error) {
	return false, ErrCacheUnavailable
}

func (Unavailable) Summary(context.Context, string) (string, bool, error) {
	return "", false, ErrCacheUnavailable
}

func (Unavailable) SetSummary(context.Context, string, string) error {
	return ErrCacheUnavailable
}

func (Unavailable) ClearSession(context.Context, string) error {
	return ErrCacheUnavailable
}

func (Unavailable) Ping(context.Context) error {
	return ErrCacheUnavailable
}

var _ HotWindowStore = Unavailable{}
