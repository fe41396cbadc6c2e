// Package main provides the entry point for the onionboard CLI.
//
// onionboard has two halves: `serve` runs the backend that scans forum
// addresses over Tor and stores the results, and every other command is an
// operator client talking to that backend over its REST API.
package main

func main() {
	Execute()
}
