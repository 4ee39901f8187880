// Command warnmap is the severe weather alert watcher binary.
package main

import "github.com/wxvisuals/warnmap/cmd"

func main() {
	cmd.Execute()
}
