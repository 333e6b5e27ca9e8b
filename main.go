package main

import "github.com/handzsujt/data-dir/cmd"

func main() {
	cmd.Execute()
}
