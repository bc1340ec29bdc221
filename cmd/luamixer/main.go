/*
Lua Obfuscator (Entry Point)

This tool parses Lua or Luau source, applies a configurable pipeline of
semantics-preserving transformation steps, renames every local identifier and
prints the result. Presets from Minify to Strong trade output size against
reverse-engineering effort.
*/
package main

import (
	"github.com/whit3rabbit/luamixer/cmd/luamixer/cmd"
)

func main() {
	cmd.Execute()
}
