// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup starts external media engines in their own process
// group so that tearing a session down also reaps whatever they spawned.
package procgroup
