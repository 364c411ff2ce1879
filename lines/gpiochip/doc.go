// Package gpiochip drives the bus lines through the Linux GPIO character device, indirectly by way
// of mkch's gpio package. Open-drain behavior is emulated: a released line is requested as an
// input so the pull-up raises it, a pulled line is requested as an output driving low.
// The model is only registered on Linux.
package gpiochip
