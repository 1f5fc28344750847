// Copyright (C) The Liger Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"github.com/liger-bio/liger"
)

func main() {
	liger.Main()
}
