// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"fmt"

	"github.com/danielhkuo/tally/errs"
)

// ErrStale reports a lost compare-and-swap on a result's approval status.
var ErrStale = fmt.Errorf("%w: result changed concurrently", errs.ErrConflict)
