// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Command x86fmt builds and inspects the recipe
// tables used to format x86 instructions in each
// assembly syntax.
package main

import (
	"firefly-os.dev/x86fmt/internal/cmd"
)

func main() {
	cmd.Execute()
}
