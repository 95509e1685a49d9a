/*
Package headshot finds the most prominent face of a photo, shrinks it to an
8x8 thumbnail and pastes it into a skin template at a fixed position.

The pipeline runs in three straight steps: a Detector turns the photo pixel
tensor into raw face boxes, Select picks the first candidate the detector
reported, and the imop package crops, downsamples and pastes the face region.

The program comes with a command line interface that works without arguments.
In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"log"

		"github.com/esimov/headshot"
		"github.com/esimov/headshot/backend"
	)

	func main() {
		p := &headshot.Processor{NewDetector: backend.New}
		if err := p.Execute(headshot.DefaultConfig()); err != nil {
			log.Fatalf("Error generating the skin: %v", err)
		}
	}
*/
package headshot
