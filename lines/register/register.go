// Package register registers all line adapter models.
package register

import (
	// register models.
	_ "go.viam.com/softi2c/lines/fake"
	_ "go.viam.com/softi2c/lines/gpiochip"
	_ "go.viam.com/softi2c/lines/periphpin"
)
