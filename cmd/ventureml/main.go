// Command ventureml trains the venture-failure classifiers and serves the
// teaching web application.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
