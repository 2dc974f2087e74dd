/*
Copyright © 2025 licscan authors
*/
package main

import "github.com/licscan/licscan/cmd"

func main() {
	cmd.Execute()
}
