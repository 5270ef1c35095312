// Package lifecycle holds shared settings for fx lifecycle hooks.
package lifecycle

import "time"

// DefaultTimeout bounds the work done in a single OnStart or OnStop hook.
const DefaultTimeout = 10 * time.Second
