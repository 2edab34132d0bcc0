// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coordinator

import "errors"

var (
	// ErrPersistenceFailed means the durable transcript write failed. The
	// operation that hit it must be aborted; nothing else may proceed on a
	// message that was never persisted.
	ErrPersistenceFailed = errors.New("durable transcript write failed")

	// ErrSummarizationFailed means the model call for a summary fold did
	// not produce a usable summary. The stale summary stays in place and
	// the window must not be trimmed.
	ErrSummarizationFailed = errors.New("summarization failed")
)
