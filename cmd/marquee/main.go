// Package main provides the CLI entrypoint for marquee.
package main

func main() {
	Execute()
}
