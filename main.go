// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/smukherj1/srm/cmd/srm"

func main() {
	cmd.Execute()
}
