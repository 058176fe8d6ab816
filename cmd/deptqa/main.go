package main

import "github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/cli"

func main() {
	cli.Execute()
}
