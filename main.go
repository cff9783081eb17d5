// Copyright © 2025 The MON authors

package main

import "github.com/monlang/mon/cmd"

func main() {
	cmd.Execute()
}
