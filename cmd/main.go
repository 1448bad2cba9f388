// Command tracker runs the oil-change and warranty tracker of a repair shop.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("tracker failed")
		os.Exit(1)
	}
}
